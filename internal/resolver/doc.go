// Package resolver decodes raw, untrusted records into typed records.
//
// Fields resolve strictly in declaration order. Each resolved field is
// visible to the fields declared after it, which is how a variant field
// finds the discriminator that selects its concrete schema. Unknown raw
// fields are ignored; absent optional fields take their declared default.
//
// Every failure is a *DecodeError and aborts the whole record.
package resolver
