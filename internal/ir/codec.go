package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeIdentity returns the wire form {"type","id"}.
func EncodeIdentity(id RecordIdentity) IRObject {
	return IRObject{"type": IRString(id.Type), "id": IRString(id.ID)}
}

// DecodeIdentity parses {"type","id"}.
func DecodeIdentity(v IRValue) (RecordIdentity, error) {
	obj, ok := v.(IRObject)
	if !ok {
		return RecordIdentity{}, fmt.Errorf("record identity must be an object, got %T", v)
	}
	typ, err := stringField(obj, "type", true)
	if err != nil {
		return RecordIdentity{}, err
	}
	id, err := stringField(obj, "id", true)
	if err != nil {
		return RecordIdentity{}, err
	}
	return RecordIdentity{Type: typ, ID: id}, nil
}

// EncodeIdentities returns an array of identity objects.
func EncodeIdentities(ids []RecordIdentity) IRArray {
	arr := make(IRArray, len(ids))
	for i, id := range ids {
		arr[i] = EncodeIdentity(id)
	}
	return arr
}

// DecodeIdentities parses an array of identity objects.
func DecodeIdentities(v IRValue) ([]RecordIdentity, error) {
	arr, ok := v.(IRArray)
	if !ok {
		return nil, fmt.Errorf("record identities must be an array, got %T", v)
	}
	ids := make([]RecordIdentity, len(arr))
	for i, elem := range arr {
		id, err := DecodeIdentity(elem)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		ids[i] = id
	}
	return ids, nil
}

// EncodeRelationship returns the wire form {"data": ...}.
func EncodeRelationship(rel Relationship) IRObject {
	if rel.ToMany {
		return IRObject{"data": EncodeIdentities(rel.Many)}
	}
	if rel.One == nil {
		return IRObject{"data": IRNull{}}
	}
	return IRObject{"data": EncodeIdentity(*rel.One)}
}

// DecodeRelationship parses {"data": identity | identity[] | null}.
func DecodeRelationship(v IRValue) (Relationship, error) {
	obj, ok := v.(IRObject)
	if !ok {
		return Relationship{}, fmt.Errorf("relationship must be an object, got %T", v)
	}
	data, ok := obj["data"]
	if !ok {
		return Relationship{}, fmt.Errorf("relationship is missing \"data\"")
	}
	switch d := data.(type) {
	case IRNull:
		return NullOne(), nil
	case IRArray:
		ids, err := DecodeIdentities(d)
		if err != nil {
			return Relationship{}, err
		}
		return HasMany(ids...), nil
	default:
		id, err := DecodeIdentity(d)
		if err != nil {
			return Relationship{}, err
		}
		return HasOne(id), nil
	}
}

// EncodeRecord returns the wire form of a record. Empty maps are omitted.
func EncodeRecord(r *Record) IRObject {
	obj := IRObject{"type": IRString(r.Type), "id": IRString(r.ID)}
	if len(r.Keys) > 0 {
		keys := make(IRObject, len(r.Keys))
		for k, v := range r.Keys {
			keys[k] = IRString(v)
		}
		obj["keys"] = keys
	}
	if len(r.Attributes) > 0 {
		attrs := make(IRObject, len(r.Attributes))
		for k, v := range r.Attributes {
			if v == nil {
				v = IRNull{}
			}
			attrs[k] = v
		}
		obj["attributes"] = attrs
	}
	if len(r.Relationships) > 0 {
		rels := make(IRObject, len(r.Relationships))
		for k, rel := range r.Relationships {
			rels[k] = EncodeRelationship(rel)
		}
		obj["relationships"] = rels
	}
	return obj
}

// DecodeRecord parses the wire form of a record.
func DecodeRecord(v IRValue) (*Record, error) {
	obj, ok := v.(IRObject)
	if !ok {
		return nil, fmt.Errorf("record must be an object, got %T", v)
	}
	id, err := DecodeIdentity(obj)
	if err != nil {
		return nil, err
	}
	r := NewRecord(id)
	if raw, ok := obj["keys"]; ok {
		keys, ok := raw.(IRObject)
		if !ok {
			return nil, fmt.Errorf("record %s: keys must be an object", id)
		}
		for k, kv := range keys {
			switch s := kv.(type) {
			case IRString:
				if r.Keys == nil {
					r.Keys = make(map[string]string)
				}
				r.Keys[k] = string(s)
			case IRNull:
				if r.Keys == nil {
					r.Keys = make(map[string]string)
				}
				r.Keys[k] = ""
			default:
				return nil, fmt.Errorf("record %s: key %q must be a string", id, k)
			}
		}
	}
	if raw, ok := obj["attributes"]; ok {
		attrs, ok := raw.(IRObject)
		if !ok {
			return nil, fmt.Errorf("record %s: attributes must be an object", id)
		}
		for k, av := range attrs {
			r.SetAttribute(k, av)
		}
	}
	if raw, ok := obj["relationships"]; ok {
		rels, ok := raw.(IRObject)
		if !ok {
			return nil, fmt.Errorf("record %s: relationships must be an object", id)
		}
		for k, rv := range rels {
			// A relationship without data (links or meta only) is left absent.
			if obj, ok := rv.(IRObject); ok {
				if _, ok := obj["data"]; !ok {
					continue
				}
			}
			rel, err := DecodeRelationship(rv)
			if err != nil {
				return nil, fmt.Errorf("record %s: relationship %q: %w", id, k, err)
			}
			r.SetRelationship(k, rel)
		}
	}
	return r, nil
}

// EncodeOperation returns the wire form of an operation.
func EncodeOperation(op Operation) IRObject {
	obj := IRObject{"op": IRString(op.Kind())}
	switch o := op.(type) {
	case AddRecord:
		obj["record"] = EncodeRecord(&o.Record)
	case UpdateRecord:
		obj["record"] = EncodeRecord(&o.Record)
	case RemoveRecord:
		obj["record"] = EncodeIdentity(o.Record)
	case ReplaceKey:
		obj["record"] = EncodeIdentity(o.Record)
		obj["key"] = IRString(o.Key)
		obj["value"] = IRString(o.Value)
	case ReplaceAttribute:
		obj["record"] = EncodeIdentity(o.Record)
		obj["attribute"] = IRString(o.Attribute)
		if o.Value == nil {
			obj["value"] = IRNull{}
		} else {
			obj["value"] = o.Value
		}
	case AddToRelatedRecords:
		obj["record"] = EncodeIdentity(o.Record)
		obj["relationship"] = IRString(o.Relationship)
		obj["relatedRecord"] = EncodeIdentity(o.RelatedRecord)
	case RemoveFromRelatedRecords:
		obj["record"] = EncodeIdentity(o.Record)
		obj["relationship"] = IRString(o.Relationship)
		obj["relatedRecord"] = EncodeIdentity(o.RelatedRecord)
	case ReplaceRelatedRecords:
		obj["record"] = EncodeIdentity(o.Record)
		obj["relationship"] = IRString(o.Relationship)
		obj["relatedRecords"] = EncodeIdentities(o.RelatedRecords)
	case ReplaceRelatedRecord:
		obj["record"] = EncodeIdentity(o.Record)
		obj["relationship"] = IRString(o.Relationship)
		if o.RelatedRecord == nil {
			obj["relatedRecord"] = IRNull{}
		} else {
			obj["relatedRecord"] = EncodeIdentity(*o.RelatedRecord)
		}
	}
	if o := op.OperationOptions(); o.RaiseNotFoundExceptions != nil {
		obj["options"] = IRObject{"raiseNotFoundExceptions": IRBool(*o.RaiseNotFoundExceptions)}
	}
	return obj
}

// DecodeOperation parses the wire form of an operation.
func DecodeOperation(v IRValue) (Operation, error) {
	obj, ok := v.(IRObject)
	if !ok {
		return nil, fmt.Errorf("operation must be an object, got %T", v)
	}
	kind, err := stringField(obj, "op", true)
	if err != nil {
		return nil, err
	}
	if !knownOpKinds[OpKind(kind)] {
		return nil, &ValidationError{
			Code:    ErrCodeInvalidOperation,
			Message: fmt.Sprintf("unknown operation %q", kind),
		}
	}
	opts, err := decodeOperationOptions(obj)
	if err != nil {
		return nil, err
	}

	switch OpKind(kind) {
	case OpAddRecord, OpUpdateRecord:
		r, err := DecodeRecord(obj["record"])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		if OpKind(kind) == OpAddRecord {
			return AddRecord{Record: *r, Options: opts}, nil
		}
		return UpdateRecord{Record: *r, Options: opts}, nil
	}

	target, err := DecodeIdentity(obj["record"])
	if err != nil {
		return nil, fmt.Errorf("%s: record: %w", kind, err)
	}

	switch OpKind(kind) {
	case OpRemoveRecord:
		return RemoveRecord{Record: target, Options: opts}, nil
	case OpReplaceKey:
		key, err := stringField(obj, "key", true)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		value, err := stringField(obj, "value", false)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		return ReplaceKey{Record: target, Key: key, Value: value, Options: opts}, nil
	case OpReplaceAttribute:
		attr, err := stringField(obj, "attribute", true)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		value, ok := obj["value"]
		if !ok {
			value = IRNull{}
		}
		return ReplaceAttribute{Record: target, Attribute: attr, Value: value, Options: opts}, nil
	}

	rel, err := stringField(obj, "relationship", true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}

	switch OpKind(kind) {
	case OpAddToRelatedRecords, OpRemoveFromRelatedRecords:
		related, err := DecodeIdentity(obj["relatedRecord"])
		if err != nil {
			return nil, fmt.Errorf("%s: relatedRecord: %w", kind, err)
		}
		if OpKind(kind) == OpAddToRelatedRecords {
			return AddToRelatedRecords{Record: target, Relationship: rel, RelatedRecord: related, Options: opts}, nil
		}
		return RemoveFromRelatedRecords{Record: target, Relationship: rel, RelatedRecord: related, Options: opts}, nil
	case OpReplaceRelatedRecords:
		related, err := DecodeIdentities(obj["relatedRecords"])
		if err != nil {
			return nil, fmt.Errorf("%s: relatedRecords: %w", kind, err)
		}
		return ReplaceRelatedRecords{Record: target, Relationship: rel, RelatedRecords: related, Options: opts}, nil
	case OpReplaceRelatedRecord:
		op := ReplaceRelatedRecord{Record: target, Relationship: rel, Options: opts}
		if raw, ok := obj["relatedRecord"]; ok && !IsNull(raw) {
			related, err := DecodeIdentity(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: relatedRecord: %w", kind, err)
			}
			op.RelatedRecord = &related
		}
		return op, nil
	}
	return nil, fmt.Errorf("unhandled operation %q", kind)
}

var knownOpKinds = map[OpKind]bool{
	OpAddRecord:                true,
	OpUpdateRecord:             true,
	OpRemoveRecord:             true,
	OpReplaceKey:               true,
	OpReplaceAttribute:         true,
	OpAddToRelatedRecords:      true,
	OpRemoveFromRelatedRecords: true,
	OpReplaceRelatedRecords:    true,
	OpReplaceRelatedRecord:     true,
}

func decodeOperationOptions(obj IRObject) (OperationOptions, error) {
	var opts OperationOptions
	raw, ok := obj["options"]
	if !ok || IsNull(raw) {
		return opts, nil
	}
	o, ok := raw.(IRObject)
	if !ok {
		return opts, fmt.Errorf("options must be an object")
	}
	if v, ok := o["raiseNotFoundExceptions"]; ok {
		b, ok := v.(IRBool)
		if !ok {
			return opts, fmt.Errorf("options.raiseNotFoundExceptions must be a boolean")
		}
		opts.RaiseNotFoundExceptions = Bool(bool(b))
	}
	return opts, nil
}

func stringField(obj IRObject, name string, required bool) (string, error) {
	v, ok := obj[name]
	if !ok || IsNull(v) {
		if required {
			return "", fmt.Errorf("missing %q", name)
		}
		return "", nil
	}
	s, ok := v.(IRString)
	if !ok {
		return "", fmt.Errorf("%q must be a string, got %T", name, v)
	}
	if required && s == "" {
		return "", fmt.Errorf("%q must not be empty", name)
	}
	return string(s), nil
}

// EncodeOperations returns an array of operation wire forms.
func EncodeOperations(ops []Operation) IRArray {
	arr := make(IRArray, len(ops))
	for i, op := range ops {
		arr[i] = EncodeOperation(op)
	}
	return arr
}

// DecodeOperations parses an array of operation wire forms.
func DecodeOperations(v IRValue) ([]Operation, error) {
	arr, ok := v.(IRArray)
	if !ok {
		return nil, fmt.Errorf("operations must be an array, got %T", v)
	}
	ops := make([]Operation, len(arr))
	for i, elem := range arr {
		op, err := DecodeOperation(elem)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		ops[i] = op
	}
	return ops, nil
}

// MarshalOperations encodes operations as canonical JSON.
func MarshalOperations(ops []Operation) ([]byte, error) {
	return MarshalCanonical(EncodeOperations(ops))
}

// UnmarshalOperations decodes a JSON array of operations.
func UnmarshalOperations(data []byte) ([]Operation, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []Operation{}, nil
	}
	var arr IRArray
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, fmt.Errorf("unmarshal operations: %w", err)
	}
	return DecodeOperations(arr)
}
