package client

// Record is one remote record as returned by read/search_read. It is an
// open map: known fields are reached through the typed accessors, extra
// fields stay addressable through plain indexing.
type Record map[string]any

// Reference is a relational field value: the related record's id and
// display label. Odoo serializes these as [id, label] pairs.
type Reference struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ID returns the record's id, or 0 when absent.
func (r Record) ID() int64 {
	id, _ := r.Int("id")
	return id
}

// Int returns an integer field value. Remote numbers decode as float64.
func (r Record) Int(field string) (int64, bool) {
	switch v := r[field].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// Float returns a numeric field value as float64.
func (r Record) Float(field string) (float64, bool) {
	switch v := r[field].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// Str returns a string field value.
func (r Record) Str(field string) (string, bool) {
	s, ok := r[field].(string)
	return s, ok
}

// Bool returns a boolean field value. Note that the remote side uses
// false for empty values of any type.
func (r Record) Bool(field string) (bool, bool) {
	b, ok := r[field].(bool)
	return b, ok
}

// Reference returns a single relational field value.
func (r Record) Reference(field string) (Reference, bool) {
	return DecodeReference(r[field])
}

// References returns a relational collection field value. Elements that
// are bare ids decode with an empty Name.
func (r Record) References(field string) ([]Reference, bool) {
	list, ok := r[field].([]any)
	if !ok {
		return nil, false
	}
	refs := make([]Reference, 0, len(list))
	for _, item := range list {
		if ref, ok := DecodeReference(item); ok {
			refs = append(refs, ref)
			continue
		}
		if id, ok := item.(float64); ok {
			refs = append(refs, Reference{ID: int64(id)})
			continue
		}
		return nil, false
	}
	return refs, true
}

// DecodeReference decodes an [id, label] pair.
func DecodeReference(v any) (Reference, bool) {
	pair, ok := v.([]any)
	if !ok || len(pair) != 2 {
		return Reference{}, false
	}
	id, ok := pair[0].(float64)
	if !ok {
		return Reference{}, false
	}
	name, ok := pair[1].(string)
	if !ok {
		return Reference{}, false
	}
	return Reference{ID: int64(id), Name: name}, true
}

// DecodeRecords converts a raw call result into records.
func DecodeRecords(result any) []Record {
	list, ok := result.([]any)
	if !ok {
		return nil
	}
	records := make([]Record, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			records = append(records, Record(m))
		}
	}
	return records
}
