package query

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/recache/internal/ir"
)

// Predicate kinds in the wire form.
const (
	predicateAttribute      = "attribute"
	predicateRelatedRecord  = "relatedRecord"
	predicateRelatedRecords = "relatedRecords"
)

// EncodeExpression returns the wire form of an expression:
//
//	{"op":"findRecords","type":"planet",
//	 "filter":[{"kind":"attribute","attribute":"name","op":"equal","value":"Jupiter"}],
//	 "sort":["-name"],"page":{"offset":0,"limit":10}}
func EncodeExpression(expr Expression) ir.IRObject {
	obj := ir.IRObject{"op": ir.IRString(expr.Kind())}

	switch e := expr.(type) {
	case FindRecord:
		obj["record"] = ir.EncodeIdentity(e.Record)
	case FindRecords:
		if e.Type != "" {
			obj["type"] = ir.IRString(e.Type)
		}
		if e.Records != nil {
			obj["records"] = ir.EncodeIdentities(e.Records)
		}
		encodeList(obj, e.Filter, e.Sort, e.Page)
	case FindRelatedRecord:
		obj["record"] = ir.EncodeIdentity(e.Record)
		obj["relationship"] = ir.IRString(e.Relationship)
	case FindRelatedRecords:
		obj["record"] = ir.EncodeIdentity(e.Record)
		obj["relationship"] = ir.IRString(e.Relationship)
		encodeList(obj, e.Filter, e.Sort, e.Page)
	}

	if raise := expr.ExpressionOptions().RaiseNotFoundExceptions; raise != nil {
		obj["options"] = ir.IRObject{"raiseNotFoundExceptions": ir.IRBool(*raise)}
	}
	return obj
}

func encodeList(obj ir.IRObject, filter []Predicate, sort []SortSpecifier, page *Page) {
	if len(filter) > 0 {
		arr := make(ir.IRArray, len(filter))
		for i, p := range filter {
			arr[i] = encodePredicate(p)
		}
		obj["filter"] = arr
	}
	if len(sort) > 0 {
		arr := make(ir.IRArray, len(sort))
		for i, s := range sort {
			arr[i] = ir.IRString(s.String())
		}
		obj["sort"] = arr
	}
	if page != nil {
		obj["page"] = ir.IRObject{
			"offset": ir.IRInt(page.Offset),
			"limit":  ir.IRInt(page.Limit),
		}
	}
}

func encodePredicate(p Predicate) ir.IRObject {
	switch pred := p.(type) {
	case AttributeFilter:
		value := pred.Value
		if value == nil {
			value = ir.IRNull{}
		}
		return ir.IRObject{
			"kind":      ir.IRString(predicateAttribute),
			"attribute": ir.IRString(pred.Attribute),
			"op":        ir.IRString(pred.Op),
			"value":     value,
		}
	case RelatedRecordFilter:
		obj := ir.IRObject{
			"kind":         ir.IRString(predicateRelatedRecord),
			"relationship": ir.IRString(pred.Relationship),
			"records":      ir.EncodeIdentities(pred.Records),
		}
		if pred.Null {
			obj["null"] = ir.IRBool(true)
		}
		return obj
	case RelatedRecordsFilter:
		return ir.IRObject{
			"kind":         ir.IRString(predicateRelatedRecords),
			"relationship": ir.IRString(pred.Relationship),
			"op":           ir.IRString(pred.Op),
			"records":      ir.EncodeIdentities(pred.Records),
		}
	}
	return ir.IRObject{}
}

// DecodeExpression parses the wire form produced by EncodeExpression.
// Malformed input yields an *ir.ValidationError with ErrCodeInvalidExpression.
func DecodeExpression(v ir.IRValue) (Expression, error) {
	expr, err := decodeExpression(v)
	if err != nil {
		return nil, &ir.ValidationError{Code: ir.ErrCodeInvalidExpression, Message: err.Error()}
	}
	return expr, nil
}

func decodeExpression(v ir.IRValue) (Expression, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("expression must be an object, got %T", v)
	}
	kind, err := str(obj, "op", true)
	if err != nil {
		return nil, err
	}
	opts, err := decodeOptions(obj)
	if err != nil {
		return nil, err
	}

	switch ExprKind(kind) {
	case KindFindRecord:
		id, err := identity(obj, "record")
		if err != nil {
			return nil, err
		}
		return FindRecord{Record: id, Options: opts}, nil

	case KindFindRecords:
		e := FindRecords{Options: opts}
		if e.Type, err = str(obj, "type", false); err != nil {
			return nil, err
		}
		if raw, ok := obj["records"]; ok && !ir.IsNull(raw) {
			if e.Records, err = ir.DecodeIdentities(raw); err != nil {
				return nil, fmt.Errorf("records: %w", err)
			}
		}
		if e.Filter, e.Sort, e.Page, err = decodeList(obj); err != nil {
			return nil, err
		}
		return e, nil

	case KindFindRelatedRecord:
		id, err := identity(obj, "record")
		if err != nil {
			return nil, err
		}
		rel, err := str(obj, "relationship", true)
		if err != nil {
			return nil, err
		}
		return FindRelatedRecord{Record: id, Relationship: rel, Options: opts}, nil

	case KindFindRelatedRecords:
		e := FindRelatedRecords{Options: opts}
		if e.Record, err = identity(obj, "record"); err != nil {
			return nil, err
		}
		if e.Relationship, err = str(obj, "relationship", true); err != nil {
			return nil, err
		}
		if e.Filter, e.Sort, e.Page, err = decodeList(obj); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, fmt.Errorf("unknown expression %q", kind)
}

func decodeList(obj ir.IRObject) ([]Predicate, []SortSpecifier, *Page, error) {
	var (
		filter []Predicate
		sort   []SortSpecifier
		page   *Page
	)
	if raw, ok := obj["filter"]; ok && !ir.IsNull(raw) {
		arr, ok := raw.(ir.IRArray)
		if !ok {
			return nil, nil, nil, fmt.Errorf("filter must be an array")
		}
		for i, elem := range arr {
			p, err := decodePredicate(elem)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("filter[%d]: %w", i, err)
			}
			filter = append(filter, p)
		}
	}
	if raw, ok := obj["sort"]; ok && !ir.IsNull(raw) {
		arr, ok := raw.(ir.IRArray)
		if !ok {
			return nil, nil, nil, fmt.Errorf("sort must be an array")
		}
		for i, elem := range arr {
			s, ok := elem.(ir.IRString)
			if !ok || s == "" || s == "-" {
				return nil, nil, nil, fmt.Errorf("sort[%d] must be an attribute name", i)
			}
			sort = append(sort, ParseSort(string(s)))
		}
	}
	if raw, ok := obj["page"]; ok && !ir.IsNull(raw) {
		p, ok := raw.(ir.IRObject)
		if !ok {
			return nil, nil, nil, fmt.Errorf("page must be an object")
		}
		offset, err := integer(p, "offset")
		if err != nil {
			return nil, nil, nil, err
		}
		limit, err := integer(p, "limit")
		if err != nil {
			return nil, nil, nil, err
		}
		page = &Page{Offset: offset, Limit: limit}
	}
	return filter, sort, page, nil
}

func decodePredicate(v ir.IRValue) (Predicate, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("predicate must be an object, got %T", v)
	}
	kind, err := str(obj, "kind", true)
	if err != nil {
		return nil, err
	}
	switch kind {
	case predicateAttribute:
		attr, err := str(obj, "attribute", true)
		if err != nil {
			return nil, err
		}
		op, err := str(obj, "op", false)
		if err != nil {
			return nil, err
		}
		if op == "" {
			op = string(OpEqual)
		}
		value, ok := obj["value"]
		if !ok {
			value = ir.IRNull{}
		}
		return AttributeFilter{Attribute: attr, Op: ComparisonOp(op), Value: value}, nil

	case predicateRelatedRecord:
		rel, err := str(obj, "relationship", true)
		if err != nil {
			return nil, err
		}
		ids, err := identities(obj, "records")
		if err != nil {
			return nil, err
		}
		null := false
		if raw, ok := obj["null"]; ok {
			b, ok := raw.(ir.IRBool)
			if !ok {
				return nil, fmt.Errorf("null must be a boolean")
			}
			null = bool(b)
		}
		return RelatedRecordFilter{Relationship: rel, Records: ids, Null: null}, nil

	case predicateRelatedRecords:
		rel, err := str(obj, "relationship", true)
		if err != nil {
			return nil, err
		}
		op, err := str(obj, "op", true)
		if err != nil {
			return nil, err
		}
		ids, err := identities(obj, "records")
		if err != nil {
			return nil, err
		}
		return RelatedRecordsFilter{Relationship: rel, Op: SetOp(op), Records: ids}, nil
	}
	return nil, fmt.Errorf("unknown predicate kind %q", kind)
}

func decodeOptions(obj ir.IRObject) (Options, error) {
	var opts Options
	raw, ok := obj["options"]
	if !ok || ir.IsNull(raw) {
		return opts, nil
	}
	o, ok := raw.(ir.IRObject)
	if !ok {
		return opts, fmt.Errorf("options must be an object")
	}
	if v, ok := o["raiseNotFoundExceptions"]; ok {
		b, ok := v.(ir.IRBool)
		if !ok {
			return opts, fmt.Errorf("options.raiseNotFoundExceptions must be a boolean")
		}
		opts.RaiseNotFoundExceptions = ir.Bool(bool(b))
	}
	return opts, nil
}

func str(obj ir.IRObject, name string, required bool) (string, error) {
	v, ok := obj[name]
	if !ok || ir.IsNull(v) {
		if required {
			return "", fmt.Errorf("missing %q", name)
		}
		return "", nil
	}
	s, ok := v.(ir.IRString)
	if !ok {
		return "", fmt.Errorf("%q must be a string, got %T", name, v)
	}
	if required && s == "" {
		return "", fmt.Errorf("%q must not be empty", name)
	}
	return string(s), nil
}

func integer(obj ir.IRObject, name string) (int, error) {
	v, ok := obj[name]
	if !ok || ir.IsNull(v) {
		return 0, nil
	}
	n, ok := v.(ir.IRInt)
	if !ok {
		return 0, fmt.Errorf("%q must be an integer, got %T", name, v)
	}
	return int(n), nil
}

func identity(obj ir.IRObject, name string) (ir.RecordIdentity, error) {
	v, ok := obj[name]
	if !ok {
		return ir.RecordIdentity{}, fmt.Errorf("missing %q", name)
	}
	id, err := ir.DecodeIdentity(v)
	if err != nil {
		return ir.RecordIdentity{}, fmt.Errorf("%s: %w", name, err)
	}
	return id, nil
}

func identities(obj ir.IRObject, name string) ([]ir.RecordIdentity, error) {
	v, ok := obj[name]
	if !ok || ir.IsNull(v) {
		return nil, nil
	}
	ids, err := ir.DecodeIdentities(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return ids, nil
}

// MarshalExpression encodes an expression as canonical JSON.
func MarshalExpression(expr Expression) ([]byte, error) {
	return ir.MarshalCanonical(EncodeExpression(expr))
}

// UnmarshalExpression decodes a JSON expression.
func UnmarshalExpression(data []byte) (Expression, error) {
	var obj ir.IRObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("unmarshal expression: %w", err)
	}
	return DecodeExpression(obj)
}

// Key returns a content hash identifying the expression. Expressions that
// encode to the same canonical JSON share a key.
func Key(expr Expression) (string, error) {
	return ir.ContentHash(ir.DomainExpression, EncodeExpression(expr))
}
