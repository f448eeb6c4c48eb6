package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/roach88/flexiq/internal/assoc"
	"github.com/roach88/flexiq/internal/ir"
	"github.com/roach88/flexiq/internal/queryir"
)

// Select lists records of resource matching c.
//
// Every record carries the value of each requested association under the
// association's property name. Returns an empty slice (not nil) when
// nothing matches.
func (a *Adapter) Select(ctx context.Context, resource string, c Criteria) ([]ir.Object, error) {
	q := a.BuildSelect(resource, c)
	payload, found, err := a.execute(ctx, "select", q)
	if err != nil {
		return nil, err
	}
	if !found {
		return []ir.Object{}, nil
	}
	return records(payload, q)
}

// SelectOne reads one record by id. A missing record is reported as
// found=false with a nil error.
func (a *Adapter) SelectOne(ctx context.Context, resource, id string, c Criteria) (ir.Object, bool, error) {
	q := a.BuildSelectOne(resource, id, c)
	payload, found, err := a.execute(ctx, "select-one", q)
	if err != nil || !found {
		return nil, false, err
	}
	recs, err := records(payload, q)
	if err != nil {
		return nil, false, err
	}
	if len(recs) == 0 {
		return nil, false, nil
	}
	return recs[0], true, nil
}

// Count returns the number of records of resource matching filter.
func (a *Adapter) Count(ctx context.Context, resource string, filter queryir.Filter) (int, error) {
	payload, found, err := a.execute(ctx, "count", a.BuildCount(resource, filter))
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	n, ok := intAttribute(payload, "@rowCount")
	if !ok {
		return 0, newUnexpectedResponseError(resource, "@rowCount")
	}
	return n, nil
}

// Insert creates one record (an ir.Object) or a batch (an ir.List of
// objects) and returns the identifier of the first created record:
//   - values[primaryName] when primaryName is set and present
//   - otherwise "code:<code>" of the first result, or its id
//
// A response without results yields ir.Null.
func (a *Adapter) Insert(ctx context.Context, resource string, values ir.Value, primaryName string) (ir.Value, error) {
	q, err := a.BuildInsert(resource, values)
	if err != nil {
		return nil, err
	}
	payload, _, err := a.execute(ctx, "insert", q)
	if err != nil {
		return nil, err
	}

	if primaryName != "" {
		if record, ok := values.(ir.Object); ok {
			if v, ok := record[primaryName]; ok {
				return v, nil
			}
		}
	}
	for _, r := range payload.List("results") {
		result, ok := r.(ir.Object)
		if !ok {
			continue
		}
		if code, ok := result.Text("code"); ok {
			return ir.String(externalIDPrefix + code), nil
		}
		if id, ok := result.Get("id"); ok {
			return id, nil
		}
	}
	return ir.Null{}, nil
}

// Update applies values to records and returns how many were updated.
// See BuildUpdate for the meaning of filter.
func (a *Adapter) Update(ctx context.Context, resource string, filter queryir.Filter, values ir.Value) (int, error) {
	q, err := a.BuildUpdate(resource, filter, values)
	if err != nil {
		return 0, err
	}
	payload, _, err := a.execute(ctx, "update", q)
	if err != nil {
		return 0, err
	}
	return stat(payload, resource, "updated")
}

// UpdateOne applies values to the record whose column equals primary and
// reports whether the service updated it.
func (a *Adapter) UpdateOne(ctx context.Context, resource, column string, primary ir.Value, values ir.Object) (bool, error) {
	q, err := a.BuildUpdateOne(resource, column, primary, values)
	if err != nil {
		return false, err
	}
	payload, _, err := a.execute(ctx, "update-one", q)
	if err != nil {
		return false, err
	}
	updated, err := stat(payload, resource, "updated")
	if err != nil {
		return false, err
	}
	return updated != 0, nil
}

// Delete deletes every record matching filter and returns how many were deleted.
func (a *Adapter) Delete(ctx context.Context, resource string, filter queryir.Filter) (int, error) {
	payload, _, err := a.execute(ctx, "delete", a.BuildDelete(resource, filter))
	if err != nil {
		return 0, err
	}
	return stat(payload, resource, "deleted")
}

// DeleteOne deletes one record by id.
func (a *Adapter) DeleteOne(ctx context.Context, resource, id string) error {
	_, _, err := a.execute(ctx, "delete-one", a.BuildDeleteOne(resource, id))
	return err
}

// ModifyManyToMany links (or, unsupported, unlinks) the source record
// primary with each of refKeys. See BuildModifyManyToMany.
func (a *Adapter) ModifyManyToMany(ctx context.Context, association queryir.Association, primary ir.Value, refKeys []ir.Value, action LinkAction) error {
	q, err := a.BuildModifyManyToMany(association, primary, refKeys, action)
	if err != nil {
		return err
	}
	_, _, err = a.execute(ctx, "modify-many-to-many", q)
	return err
}

// records extracts the resource's record list and attaches associations.
func records(payload ir.Object, q queryir.Query) ([]ir.Object, error) {
	list := payload.List(q.Resource)
	out := make([]ir.Object, 0, len(list))
	for i, item := range list {
		record, ok := item.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("%s: record %d is %T, not an object", q.Resource, i, item)
		}
		attached, err := assoc.Attach(q.Associations, record)
		if err != nil {
			return nil, err
		}
		out = append(out, MapAssociations(q.Associations, attached))
	}
	return out, nil
}

// stat reads stats.<name> from a PUT response.
func stat(payload ir.Object, resource, name string) (int, error) {
	stats, ok := payload["stats"].(ir.Object)
	if !ok {
		return 0, newUnexpectedResponseError(resource, "stats")
	}
	n, ok := intAttribute(stats, name)
	if !ok {
		return 0, newUnexpectedResponseError(resource, "stats."+name)
	}
	return n, nil
}

// intAttribute reads an integer the service may send as a number or as
// decimal text.
func intAttribute(obj ir.Object, key string) (int, bool) {
	text, ok := obj.Text(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, false
	}
	return n, true
}
