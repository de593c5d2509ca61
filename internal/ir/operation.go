package ir

// OpKind names an operation type. The values match the wire form's "op" field.
type OpKind string

const (
	OpAddRecord                OpKind = "addRecord"
	OpUpdateRecord             OpKind = "updateRecord"
	OpRemoveRecord             OpKind = "removeRecord"
	OpReplaceKey               OpKind = "replaceKey"
	OpReplaceAttribute         OpKind = "replaceAttribute"
	OpAddToRelatedRecords      OpKind = "addToRelatedRecords"
	OpRemoveFromRelatedRecords OpKind = "removeFromRelatedRecords"
	OpReplaceRelatedRecords    OpKind = "replaceRelatedRecords"
	OpReplaceRelatedRecord     OpKind = "replaceRelatedRecord"
)

// OperationOptions are per-operation overrides. A nil field defers to the
// call options, then to the cache configuration.
type OperationOptions struct {
	RaiseNotFoundExceptions *bool
}

// Operation is a sealed interface over the record operation types.
type Operation interface {
	operation()
	// Kind returns the operation type.
	Kind() OpKind
	// Target returns the identity of the record the operation mutates.
	Target() RecordIdentity
	// OperationOptions returns the per-operation overrides.
	OperationOptions() OperationOptions
}

// AddRecord merges Record into the cache, creating it if absent.
type AddRecord struct {
	Record  Record
	Options OperationOptions
}

// UpdateRecord merges Record into the cache, creating it if absent.
type UpdateRecord struct {
	Record  Record
	Options OperationOptions
}

// RemoveRecord removes a record and clears every link to it.
type RemoveRecord struct {
	Record  RecordIdentity
	Options OperationOptions
}

// ReplaceKey sets one key. An empty Value removes the key.
type ReplaceKey struct {
	Record  RecordIdentity
	Key     string
	Value   string
	Options OperationOptions
}

// ReplaceAttribute sets one attribute. IRNull clears it.
type ReplaceAttribute struct {
	Record    RecordIdentity
	Attribute string
	Value     IRValue
	Options   OperationOptions
}

// AddToRelatedRecords adds one member to a to-many relationship.
type AddToRelatedRecords struct {
	Record        RecordIdentity
	Relationship  string
	RelatedRecord RecordIdentity
	Options       OperationOptions
}

// RemoveFromRelatedRecords removes one member from a to-many relationship.
type RemoveFromRelatedRecords struct {
	Record        RecordIdentity
	Relationship  string
	RelatedRecord RecordIdentity
	Options       OperationOptions
}

// ReplaceRelatedRecords sets the members of a to-many relationship.
type ReplaceRelatedRecords struct {
	Record         RecordIdentity
	Relationship   string
	RelatedRecords []RecordIdentity
	Options        OperationOptions
}

// ReplaceRelatedRecord sets a to-one relationship. nil clears it.
type ReplaceRelatedRecord struct {
	Record        RecordIdentity
	Relationship  string
	RelatedRecord *RecordIdentity
	Options       OperationOptions
}

func (AddRecord) operation()                {}
func (UpdateRecord) operation()             {}
func (RemoveRecord) operation()             {}
func (ReplaceKey) operation()               {}
func (ReplaceAttribute) operation()         {}
func (AddToRelatedRecords) operation()      {}
func (RemoveFromRelatedRecords) operation() {}
func (ReplaceRelatedRecords) operation()    {}
func (ReplaceRelatedRecord) operation()     {}

func (AddRecord) Kind() OpKind                { return OpAddRecord }
func (UpdateRecord) Kind() OpKind             { return OpUpdateRecord }
func (RemoveRecord) Kind() OpKind             { return OpRemoveRecord }
func (ReplaceKey) Kind() OpKind               { return OpReplaceKey }
func (ReplaceAttribute) Kind() OpKind         { return OpReplaceAttribute }
func (AddToRelatedRecords) Kind() OpKind      { return OpAddToRelatedRecords }
func (RemoveFromRelatedRecords) Kind() OpKind { return OpRemoveFromRelatedRecords }
func (ReplaceRelatedRecords) Kind() OpKind    { return OpReplaceRelatedRecords }
func (ReplaceRelatedRecord) Kind() OpKind     { return OpReplaceRelatedRecord }

func (o AddRecord) Target() RecordIdentity                { return o.Record.Identity() }
func (o UpdateRecord) Target() RecordIdentity             { return o.Record.Identity() }
func (o RemoveRecord) Target() RecordIdentity             { return o.Record }
func (o ReplaceKey) Target() RecordIdentity               { return o.Record }
func (o ReplaceAttribute) Target() RecordIdentity         { return o.Record }
func (o AddToRelatedRecords) Target() RecordIdentity      { return o.Record }
func (o RemoveFromRelatedRecords) Target() RecordIdentity { return o.Record }
func (o ReplaceRelatedRecords) Target() RecordIdentity    { return o.Record }
func (o ReplaceRelatedRecord) Target() RecordIdentity     { return o.Record }

func (o AddRecord) OperationOptions() OperationOptions                { return o.Options }
func (o UpdateRecord) OperationOptions() OperationOptions             { return o.Options }
func (o RemoveRecord) OperationOptions() OperationOptions             { return o.Options }
func (o ReplaceKey) OperationOptions() OperationOptions               { return o.Options }
func (o ReplaceAttribute) OperationOptions() OperationOptions         { return o.Options }
func (o AddToRelatedRecords) OperationOptions() OperationOptions      { return o.Options }
func (o RemoveFromRelatedRecords) OperationOptions() OperationOptions { return o.Options }
func (o ReplaceRelatedRecords) OperationOptions() OperationOptions    { return o.Options }
func (o ReplaceRelatedRecord) OperationOptions() OperationOptions     { return o.Options }

// RelationshipName returns the relationship a relationship operation
// targets, or "" for other operation types.
func RelationshipName(op Operation) string {
	switch o := op.(type) {
	case AddToRelatedRecords:
		return o.Relationship
	case RemoveFromRelatedRecords:
		return o.Relationship
	case ReplaceRelatedRecords:
		return o.Relationship
	case ReplaceRelatedRecord:
		return o.Relationship
	}
	return ""
}

// Bool returns a pointer to b, for option fields.
func Bool(b bool) *bool {
	return &b
}
