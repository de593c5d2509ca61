package query

import (
	"strings"

	"github.com/roach88/recache/internal/ir"
)

// ExprKind names an expression type. The values match the wire form's "op"
// field.
type ExprKind string

const (
	KindFindRecord         ExprKind = "findRecord"
	KindFindRecords        ExprKind = "findRecords"
	KindFindRelatedRecord  ExprKind = "findRelatedRecord"
	KindFindRelatedRecords ExprKind = "findRelatedRecords"
)

// Options are per-expression overrides. A nil field defers to the call
// options, then to the cache configuration.
type Options struct {
	RaiseNotFoundExceptions *bool
}

// Expression is a sealed interface over the query expression types.
//
// Only types in this package implement it, so evaluators can switch over
// the four kinds exhaustively.
type Expression interface {
	expressionNode()
	// Kind returns the expression type.
	Kind() ExprKind
	// ExpressionOptions returns the per-expression overrides.
	ExpressionOptions() Options
}

// Predicate is a sealed interface over filter predicates. A filter list is
// conjunctive: a record matches when every predicate matches.
type Predicate interface {
	predicateNode()
}

// FindRecord returns a single record by identity.
type FindRecord struct {
	Record  ir.RecordIdentity
	Options Options
}

// FindRecords returns every record of Type, or the records listed in Records,
// filtered, sorted and paged in that order.
type FindRecords struct {
	Type    string
	Records []ir.RecordIdentity
	Filter  []Predicate
	Sort    []SortSpecifier
	Page    *Page
	Options Options
}

// FindRelatedRecord returns the record a to-one relationship points at.
type FindRelatedRecord struct {
	Record       ir.RecordIdentity
	Relationship string
	Options      Options
}

// FindRelatedRecords returns the members of a to-many relationship, filtered,
// sorted and paged.
type FindRelatedRecords struct {
	Record       ir.RecordIdentity
	Relationship string
	Filter       []Predicate
	Sort         []SortSpecifier
	Page         *Page
	Options      Options
}

func (FindRecord) expressionNode()         {}
func (FindRecords) expressionNode()        {}
func (FindRelatedRecord) expressionNode()  {}
func (FindRelatedRecords) expressionNode() {}

func (FindRecord) Kind() ExprKind         { return KindFindRecord }
func (FindRecords) Kind() ExprKind        { return KindFindRecords }
func (FindRelatedRecord) Kind() ExprKind  { return KindFindRelatedRecord }
func (FindRelatedRecords) Kind() ExprKind { return KindFindRelatedRecords }

func (e FindRecord) ExpressionOptions() Options         { return e.Options }
func (e FindRecords) ExpressionOptions() Options        { return e.Options }
func (e FindRelatedRecord) ExpressionOptions() Options  { return e.Options }
func (e FindRelatedRecords) ExpressionOptions() Options { return e.Options }

// ComparisonOp compares an attribute with a value.
type ComparisonOp string

const (
	OpEqual ComparisonOp = "equal"
	OpGt    ComparisonOp = "gt"
	OpGte   ComparisonOp = "gte"
	OpLt    ComparisonOp = "lt"
	OpLte   ComparisonOp = "lte"
)

// SetOp compares the members of a to-many relationship with a set of
// identities.
type SetOp string

const (
	// SetEqual matches when the members are exactly the given identities.
	SetEqual SetOp = "equal"
	// SetAll matches when every given identity is a member.
	SetAll SetOp = "all"
	// SetSome matches when at least one given identity is a member.
	SetSome SetOp = "some"
	// SetNone matches when no given identity is a member.
	SetNone SetOp = "none"
)

// AttributeFilter matches records whose attribute compares with Value.
// Records missing the attribute, or holding null, never match gt/gte/lt/lte.
// Equality with IRNull matches missing and null attributes.
type AttributeFilter struct {
	Attribute string
	Op        ComparisonOp
	Value     ir.IRValue
}

// RelatedRecordFilter matches records whose to-one relationship points at
// one of Records, or is empty when Null is set.
type RelatedRecordFilter struct {
	Relationship string
	Records      []ir.RecordIdentity
	Null         bool
}

// RelatedRecordsFilter matches records whose to-many relationship satisfies
// Op against Records.
type RelatedRecordsFilter struct {
	Relationship string
	Op           SetOp
	Records      []ir.RecordIdentity
}

func (AttributeFilter) predicateNode()      {}
func (RelatedRecordFilter) predicateNode()  {}
func (RelatedRecordsFilter) predicateNode() {}

// SortOrder is the direction of one sort key.
type SortOrder string

const (
	Ascending  SortOrder = "ascending"
	Descending SortOrder = "descending"
)

// SortSpecifier orders results by one attribute.
type SortSpecifier struct {
	Attribute string
	Order     SortOrder
}

// String renders the specifier in its short form: "name" or "-name".
func (s SortSpecifier) String() string {
	if s.Order == Descending {
		return "-" + s.Attribute
	}
	return s.Attribute
}

// ParseSort parses the short form: a leading "-" sorts descending.
func ParseSort(s string) SortSpecifier {
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		return SortSpecifier{Attribute: rest, Order: Descending}
	}
	return SortSpecifier{Attribute: s, Order: Ascending}
}

// Page selects a window of the filtered and sorted results. A zero Limit
// means no limit.
type Page struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Result is the outcome of evaluating an expression.
//
// Defined is false when the answer is undefined: a findRecord or
// findRelatedRecord(s) whose primary record is absent under lenient rules.
// Many distinguishes list answers (Records, possibly empty) from single ones
// (Record, nil meaning null).
type Result struct {
	Record  *ir.Record
	Records []*ir.Record
	Many    bool
	Defined bool
}

// Undefined is the result of a lenient lookup of an absent record.
var Undefined = Result{}

// Value renders the result as an IRValue: an array of records, a record, or
// null for null and undefined answers.
func (r Result) Value() ir.IRValue {
	if r.Many {
		arr := make(ir.IRArray, len(r.Records))
		for i, rec := range r.Records {
			arr[i] = ir.EncodeRecord(rec)
		}
		return arr
	}
	if r.Record == nil {
		return ir.IRNull{}
	}
	return ir.EncodeRecord(r.Record)
}

// Clone returns a result holding copies of every record.
func (r Result) Clone() Result {
	out := Result{Many: r.Many, Defined: r.Defined, Record: r.Record.Clone()}
	if r.Records != nil {
		out.Records = make([]*ir.Record, len(r.Records))
		for i, rec := range r.Records {
			out.Records[i] = rec.Clone()
		}
	}
	return out
}
