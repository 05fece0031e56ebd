package store

import (
	"database/sql"
	"regexp"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mattn/go-sqlite3"
)

// driverName is go-sqlite3 with the regexp function installed on every
// connection.
const driverName = "sqlite3_nullg"

var registerOnce sync.Once

func registerDriver() {
	registerOnce.Do(func() {
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("regexp", regexpMatch, true)
			},
		})
	})
}

// patternCacheSize bounds the compiled patterns kept across queries.
const patternCacheSize = 256

var patternCache = newPatternCache(patternCacheSize)

func newPatternCache(size int) *lru.Cache[string, *regexp.Regexp] {
	c, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		panic(err)
	}
	return c
}

// regexpMatch implements "value REGEXP pattern". Only text values can match.
func regexpMatch(pattern string, value any) (bool, error) {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return false, nil
	}
	if re, ok := patternCache.Get(pattern); ok {
		return re.MatchString(s), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	patternCache.Add(pattern, re)
	return re.MatchString(s), nil
}
