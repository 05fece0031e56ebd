package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/nullg/internal/ir"
	"github.com/roach88/nullg/internal/queryir"
)

// Compiler turns filter predicates into parameterized SQLite over a table of
// JSON record bodies.
//
// Every field path and literal travels as a bound parameter; only the fixed
// table and column names appear in the SQL text. Every SELECT ends with a
// total ORDER BY so result order never depends on the query plan.
type Compiler struct {
	Table string // records table
	Body  string // JSON body column
}

// NewCompiler returns a compiler for the store's records table.
func NewCompiler() *Compiler {
	return &Compiler{Table: "records", Body: "body"}
}

// Select compiles a query for the records of one item class matching p.
// limit <= 0 means no limit.
func (c *Compiler) Select(itemClass string, p queryir.Predicate, limit int) (string, []any, error) {
	where, params, err := c.Where(p)
	if err != nil {
		return "", nil, err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT seq, id, item_class, content_hash, %s FROM %s WHERE item_class = ? AND (%s)", c.Body, c.Table, where)
	sb.WriteString(" ORDER BY seq ASC, id ASC COLLATE BINARY")
	args := append([]any{itemClass}, params...)
	if limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	return sb.String(), args, nil
}

// Count compiles a COUNT(*) over the records of one item class matching p.
func (c *Compiler) Count(itemClass string, p queryir.Predicate) (string, []any, error) {
	where, params, err := c.Where(p)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE item_class = ? AND (%s)", c.Table, where)
	return sql, append([]any{itemClass}, params...), nil
}

// Where compiles p into a boolean SQL expression and its parameters.
func (c *Compiler) Where(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, fmt.Errorf("cannot compile nil predicate")
	}
	switch pred := p.(type) {
	case queryir.MatchAll:
		return "1 = 1", nil, nil
	case queryir.Compare:
		return c.compare(pred)
	case queryir.In:
		return c.in(pred)
	case queryir.Exists:
		return c.exists(pred)
	case queryir.Regex:
		return c.anyValue(pred.Field, "REGEXP ?", []any{pred.Pattern})
	case queryir.And:
		return c.join(pred.Predicates, " AND ", "1 = 1")
	case queryir.Or:
		return c.join(pred.Predicates, " OR ", "1 = 0")
	case queryir.Nor:
		inner, params, err := c.join(pred.Predicates, " OR ", "1 = 0")
		if err != nil {
			return "", nil, err
		}
		return "NOT COALESCE((" + inner + "), 0)", params, nil
	case queryir.Not:
		inner, params, err := c.Where(pred.Predicate)
		if err != nil {
			return "", nil, err
		}
		return "NOT COALESCE((" + inner + "), 0)", params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *Compiler) join(preds []queryir.Predicate, sep, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, 0, len(preds))
	var params []any
	for _, p := range preds {
		sql, ps, err := c.Where(p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+sql+")")
		params = append(params, ps...)
	}
	return strings.Join(parts, sep), params, nil
}

var compareSQL = map[queryir.CompareOp]string{
	queryir.OpEq:  "=",
	queryir.OpGt:  ">",
	queryir.OpGte: ">=",
	queryir.OpLt:  "<",
	queryir.OpLte: "<=",
}

func (c *Compiler) compare(p queryir.Compare) (string, []any, error) {
	if p.Op == queryir.OpNe {
		eq, params, err := c.compare(queryir.Compare{Field: p.Field, Op: queryir.OpEq, Value: p.Value})
		if err != nil {
			return "", nil, err
		}
		return "NOT COALESCE((" + eq + "), 0)", params, nil
	}
	op, ok := compareSQL[p.Op]
	if !ok {
		return "", nil, fmt.Errorf("unsupported comparison %s", p.Op)
	}

	switch v := p.Value.(type) {
	case nil, ir.Null:
		if p.Op != queryir.OpEq {
			return "", nil, fmt.Errorf("%s: null only supports $eq", p.Field)
		}
		return c.isNull(p.Field)
	case ir.Array, ir.Object:
		if p.Op != queryir.OpEq {
			return "", nil, fmt.Errorf("%s: %s needs a scalar operand", p.Field, p.Op)
		}
		path, err := JSONPath(p.Field)
		if err != nil {
			return "", nil, err
		}
		encoded, err := ir.MarshalCanonical(v)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", p.Field, err)
		}
		return c.column("json_extract(%s, ?) = json(?)"), []any{path, string(encoded)}, nil
	}

	param, err := toParam(p.Value)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", p.Field, err)
	}
	return c.anyValue(p.Field, op+" ?", []any{param})
}

func (c *Compiler) in(p queryir.In) (string, []any, error) {
	var (
		placeholders []string
		params       []any
		matchNull    bool
	)
	for _, v := range p.Values {
		switch v.(type) {
		case nil, ir.Null:
			matchNull = true
			continue
		case ir.Array, ir.Object:
			return "", nil, fmt.Errorf("%s: $in values must be scalars", p.Field)
		}
		param, err := toParam(v)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", p.Field, err)
		}
		placeholders = append(placeholders, "?")
		params = append(params, param)
	}

	var parts []string
	var args []any
	if len(placeholders) > 0 {
		sql, ps, err := c.anyValue(p.Field, "IN ("+strings.Join(placeholders, ", ")+")", params)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		args = append(args, ps...)
	}
	if matchNull {
		sql, ps, err := c.isNull(p.Field)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		args = append(args, ps...)
	}

	sql := "1 = 0"
	if len(parts) > 0 {
		sql = "(" + strings.Join(parts, " OR ") + ")"
	}
	if p.Negate {
		return "NOT COALESCE(" + sql + ", 0)", args, nil
	}
	return sql, args, nil
}

func (c *Compiler) exists(p queryir.Exists) (string, []any, error) {
	path, err := JSONPath(p.Field)
	if err != nil {
		return "", nil, err
	}
	if p.Want {
		return c.column("json_type(%s, ?) IS NOT NULL"), []any{path}, nil
	}
	return c.column("json_type(%s, ?) IS NULL"), []any{path}, nil
}

// isNull matches an explicit JSON null or a missing field.
func (c *Compiler) isNull(field string) (string, []any, error) {
	path, err := JSONPath(field)
	if err != nil {
		return "", nil, err
	}
	sql := c.column("(json_type(%[1]s, ?) IS NULL OR json_type(%[1]s, ?) = 'null')")
	return sql, []any{path, path}, nil
}

// anyValue matches when the value at field satisfies cond, or, for an
// array, when any element does. cond is an SQL suffix such as ">= ?".
func (c *Compiler) anyValue(field, cond string, condParams []any) (string, []any, error) {
	path, err := JSONPath(field)
	if err != nil {
		return "", nil, err
	}
	body := c.Table + "." + c.Body
	sql := fmt.Sprintf(
		"(EXISTS (SELECT 1 FROM json_each(%[1]s, ?) AS e WHERE json_type(%[1]s, ?) = 'array' AND e.value %[2]s)"+
			" OR (json_type(%[1]s, ?) NOT IN ('array', 'object') AND json_extract(%[1]s, ?) %[2]s))",
		body, cond)

	params := make([]any, 0, 4+2*len(condParams))
	params = append(params, path, path)
	params = append(params, condParams...)
	params = append(params, path, path)
	params = append(params, condParams...)
	return sql, params, nil
}

func (c *Compiler) column(format string) string {
	return fmt.Sprintf(format, c.Table+"."+c.Body)
}

// JSONPath converts a dotted field path into an SQLite JSON path with every
// label quoted, e.g. "totalWar.mass" -> `$."totalWar"."mass"`.
func JSONPath(field string) (string, error) {
	if field == "" {
		return "", fmt.Errorf("empty field path")
	}
	var sb strings.Builder
	sb.WriteString("$")
	for _, seg := range strings.Split(field, ".") {
		if seg == "" {
			return "", fmt.Errorf("field path %q has an empty segment", field)
		}
		if strings.ContainsAny(seg, "\"\\") {
			return "", fmt.Errorf("field path %q contains a quote or backslash", field)
		}
		sb.WriteString(`."`)
		sb.WriteString(seg)
		sb.WriteString(`"`)
	}
	return sb.String(), nil
}

// toParam converts a scalar value into a database/sql argument.
func toParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.Int:
		return int64(val), nil
	case ir.Float:
		return float64(val), nil
	case ir.Bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return nil, fmt.Errorf("unsupported parameter type %T", v)
	}
}
