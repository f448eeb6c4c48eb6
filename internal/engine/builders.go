package engine

import (
	"fmt"

	"github.com/roach88/flexiq/internal/assoc"
	"github.com/roach88/flexiq/internal/ir"
	"github.com/roach88/flexiq/internal/queryir"
)

// Record markers understood by the service in PUT payloads.
const (
	markerUpdate = "@update" // "fail": never update an existing record
	markerCreate = "@create" // "fail": never create a missing record
	markerAction = "@action"
	markerFilter = "@filter"
)

// LinkAction selects what ModifyManyToMany does with the given keys.
type LinkAction string

const (
	LinkAdd    LinkAction = "add"
	LinkRemove LinkAction = "remove"
)

// Criteria narrows a select.
type Criteria struct {
	Filter       queryir.Filter
	Selection    queryir.SelectionTree
	Order        []queryir.OrderBy
	Page         *queryir.Page // nil sends start=0&limit=0 (all records)
	Associations []queryir.Association
	Options      []queryir.Option
}

// AddOption appends a raw query parameter passed through unchanged.
func (c *Criteria) AddOption(name, value string) {
	c.Options = append(c.Options, queryir.Option{Name: name, Value: value})
}

// BuildSelect builds the query listing records of resource.
//
// Every select carries a window: the service pages large result sets by
// default, and limit=0 asks for all of them.
func (a *Adapter) BuildSelect(resource string, c Criteria) queryir.Query {
	page := queryir.Page{}
	if c.Page != nil {
		page = *c.Page
	}
	q := queryir.Query{
		Resource:                 resource,
		Method:                   queryir.MethodGet,
		Filter:                   c.Filter,
		Selection:                c.Selection,
		Page:                     &page,
		Order:                    c.Order,
		Associations:             c.Associations,
		DetailFullOnAssociations: a.opts.DetailFullOnAssociations,
		Options:                  c.Options,
	}
	return q.Clone()
}

// BuildSelectOne builds the query reading one record by id.
// The id may be numeric or an external id such as "code:FV0001/2024".
// Filter, Order and Page are ignored.
func (a *Adapter) BuildSelectOne(resource, id string, c Criteria) queryir.Query {
	q := queryir.Query{
		Resource:                 resource,
		ID:                       id,
		Method:                   queryir.MethodGet,
		Selection:                c.Selection,
		Associations:             c.Associations,
		DetailFullOnAssociations: a.opts.DetailFullOnAssociations,
		Options:                  c.Options,
	}
	return q.Clone()
}

// BuildCount builds the query counting records matching filter.
func (a *Adapter) BuildCount(resource string, filter queryir.Filter) queryir.Query {
	return queryir.Query{
		Resource: resource,
		Method:   queryir.MethodGet,
		Filter:   filter,
		Options: []queryir.Option{
			{Name: "detail", Value: "id"},
			{Name: "limit", Value: "1"},
			{Name: "add-row-count", Value: "true"},
		},
	}
}

// BuildInsert builds the query creating one record (values is an
// ir.Object) or a batch (an ir.List of objects). Every record is marked
// @update=fail so an existing record is never overwritten.
func (a *Adapter) BuildInsert(resource string, values ir.Value) (queryir.Query, error) {
	marked, err := markRecords(values, markerUpdate, "fail")
	if err != nil {
		return queryir.Query{}, fmt.Errorf("insert %s: %w", resource, err)
	}
	return queryir.Query{
		Resource: resource,
		Method:   queryir.MethodPut,
		Body:     ir.NewObject(ir.O(resource, marked)),
	}, nil
}

// BuildUpdate builds the query updating records. With a filter, the
// values are applied to every matching record; without one, each record
// must identify itself (id or code). Every record is marked
// @create=fail so a missing record is never created.
func (a *Adapter) BuildUpdate(resource string, filter queryir.Filter, values ir.Value) (queryir.Query, error) {
	marked, err := markRecords(values, markerCreate, "fail")
	if err != nil {
		return queryir.Query{}, fmt.Errorf("update %s: %w", resource, err)
	}
	return queryir.Query{
		Resource: resource,
		Method:   queryir.MethodPut,
		Filter:   filter,
		Body:     ir.NewObject(ir.O(resource, marked)),
	}, nil
}

// BuildUpdateOne builds the query updating the record whose column
// equals primary.
func (a *Adapter) BuildUpdateOne(resource, column string, primary ir.Value, values ir.Object) (queryir.Query, error) {
	record := values.Clone()
	record[column] = primary
	return a.BuildUpdate(resource, nil, record)
}

// BuildDelete builds the query deleting every record matching filter.
func (a *Adapter) BuildDelete(resource string, filter queryir.Filter) queryir.Query {
	return queryir.Query{
		Resource: resource,
		Method:   queryir.MethodPut,
		Filter:   filter,
		Body: ir.NewObject(ir.O(resource, ir.NewObject(
			ir.O(markerAction, ir.String("delete")),
		))),
	}
}

// BuildDeleteOne builds the query deleting one record by id.
func (a *Adapter) BuildDeleteOne(resource, id string) queryir.Query {
	return queryir.Query{
		Resource: resource,
		ID:       id,
		Method:   queryir.MethodDelete,
	}
}

// BuildModifyManyToMany builds the query linking the source record
// primary to each of refKeys through a user-defined link.
//
// Only user-defined links (uzivatelske-vazby) can be written; built-in
// links are maintained by the service. Removing links is not supported.
func (a *Adapter) BuildModifyManyToMany(association queryir.Association, primary ir.Value, refKeys []ir.Value, action LinkAction) (queryir.Query, error) {
	if association.JoinKey != queryir.JoinCustomLinks {
		return queryir.Query{}, NewUnsupportedOperationError(association.SourceResource, "only custom relations can be modified")
	}
	if action != LinkAdd {
		return queryir.Query{}, NewUnsupportedOperationError(association.SourceResource, fmt.Sprintf("custom relation %s not implemented", action))
	}

	records := make(ir.List, 0, len(refKeys))
	for _, ref := range refKeys {
		records = append(records, ir.NewObject(
			ir.O("id", primary),
			ir.O(assoc.CustomLinksRelation, ir.NewObject(
				ir.O(assoc.CustomLinkEntry, ir.NewObject(
					ir.O("evidenceType", ir.String(association.TargetResource)),
					ir.O(assoc.CustomLinkObject, ref),
					ir.O(assoc.CustomLinkType, ir.String(association.JoinResource)),
				)),
			)),
		))
	}
	return a.BuildInsert(association.SourceResource, records)
}

// markRecords returns a copy of values with marker set on the record or
// on every record of a batch.
func markRecords(values ir.Value, marker, value string) (ir.Value, error) {
	switch v := values.(type) {
	case ir.Object:
		out := v.Clone()
		out[marker] = ir.String(value)
		return out, nil
	case ir.List:
		out := make(ir.List, len(v))
		for i, item := range v {
			record, ok := item.(ir.Object)
			if !ok {
				return nil, fmt.Errorf("record %d: expected an object, got %T", i, item)
			}
			marked := record.Clone()
			marked[marker] = ir.String(value)
			out[i] = marked
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an object or a list of objects, got %T", values)
	}
}
