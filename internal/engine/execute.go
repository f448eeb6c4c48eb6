package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/roach88/flexiq/internal/assoc"
	"github.com/roach88/flexiq/internal/ir"
	"github.com/roach88/flexiq/internal/queryir"
	"github.com/roach88/flexiq/internal/querywire"
	"github.com/roach88/flexiq/internal/store"
	"github.com/roach88/flexiq/internal/transport"
)

// Compile plans associations and assembles q without sending anything.
// The returned query is the planned one (includes, relations, merged
// selection) for callers that want to inspect it.
func (a *Adapter) Compile(q queryir.Query) (queryir.Query, querywire.RequestPlan, error) {
	planned, err := assoc.Plan(q)
	if err != nil {
		return q, querywire.RequestPlan{}, err
	}
	plan, err := a.compiler.Assemble(planned)
	if err != nil {
		return q, querywire.RequestPlan{}, err
	}
	return planned, plan, nil
}

// envelopeBody wraps a PUT body in the payload envelope. A filter on a PUT
// query is injected into the resource's record as @filter, so the values
// apply to every record it matches.
func (a *Adapter) envelopeBody(q queryir.Query) (ir.Value, error) {
	if q.Method != queryir.MethodPut {
		return nil, nil
	}

	body, ok := q.Body.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("put %s: body must be an object, got %T", q.Resource, q.Body)
	}

	filter, err := a.compiler.CompileFilter(q.Filter)
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", q.Resource, err)
	}
	if filter != "" {
		record, ok := body[q.Resource].(ir.Object)
		if !ok {
			return nil, NewUnsupportedOperationError(q.Resource, "a filter applies to a single record payload, not a batch")
		}
		record = record.Clone()
		record[markerFilter] = ir.String(filter)
		body = body.Clone()
		body[q.Resource] = record
	}

	return ir.NewObject(ir.O(assoc.EnvelopeRoot, body)), nil
}

// execute sends q and returns the response payload with the envelope
// removed. A GET answered with 404 reports found=false and no error.
func (a *Adapter) execute(ctx context.Context, operation string, q queryir.Query) (payload ir.Object, found bool, err error) {
	planned, plan, err := a.Compile(q)
	if err != nil {
		return nil, false, err
	}
	body, err := a.envelopeBody(planned)
	if err != nil {
		return nil, false, err
	}

	hash, err := plan.Hash()
	if err != nil {
		return nil, false, fmt.Errorf("%s %s: %w", operation, q.Resource, err)
	}

	entry := store.Entry{
		ID:        a.ids.Generate(),
		Seq:       a.clock.Next(),
		Resource:  q.Resource,
		Operation: operation,
		Method:    plan.Method,
		URL:       plan.URL(),
		PlanHash:  hash,
	}
	if body != nil {
		data, err := ir.Marshal(body)
		if err != nil {
			return nil, false, fmt.Errorf("%s %s: encode body: %w", operation, q.Resource, err)
		}
		entry.Body = string(data)
	}

	a.logger.Debug("request compiled",
		"request_id", entry.ID,
		"seq", entry.Seq,
		"operation", operation,
		"method", entry.Method,
		"url", entry.URL,
		"plan_hash", hash,
	)

	resp, sendErr := a.transport.Send(ctx, transport.Request{
		Method: plan.Method,
		URL:    entry.URL,
		Body:   body,
	})
	entry.Status = resp.Status

	payload, found, err = a.interpret(planned, entry, resp, sendErr)
	if err != nil {
		entry.Error = err.Error()
		a.logger.Error("request failed",
			"request_id", entry.ID,
			"operation", operation,
			"url", entry.URL,
			"status", entry.Status,
			"error", err,
		)
	} else {
		a.logger.Info("request executed",
			"request_id", entry.ID,
			"operation", operation,
			"url", entry.URL,
			"status", entry.Status,
			"found", found,
		)
	}

	if a.journal != nil {
		if jerr := a.journal.Append(ctx, entry); jerr != nil {
			// The response is returned regardless of journal failures
			a.logger.Warn("journal append failed",
				"request_id", entry.ID,
				"error", jerr,
			)
		}
	}

	return payload, found, err
}

// interpret maps a transport outcome onto the engine's results and errors.
func (a *Adapter) interpret(q queryir.Query, entry store.Entry, resp transport.Response, sendErr error) (ir.Object, bool, error) {
	if sendErr != nil && !errors.Is(sendErr, transport.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("%s %s: %w", entry.Operation, q.Resource, sendErr)
	}

	payload := unwrapEnvelope(resp.Payload)

	if errors.Is(sendErr, transport.ErrRecordNotFound) {
		if q.Method == queryir.MethodGet {
			return nil, false, nil
		}
		return nil, false, &RemoteError{Status: http.StatusNotFound, Method: entry.Method, URL: entry.URL, Payload: payload}
	}

	if resp.Status != http.StatusOK && resp.Status != http.StatusCreated {
		return nil, false, &RemoteError{Status: resp.Status, Method: entry.Method, URL: entry.URL, Payload: payload}
	}

	obj, ok := payload.(ir.Object)
	if !ok {
		// DELETE answers with an empty body
		obj = ir.Object{}
	}
	if q.Method == queryir.MethodGet && a.opts.CodeAsID {
		obj = replaceExternalIDs(obj)
	}
	return obj, true, nil
}

// unwrapEnvelope returns the content of the payload envelope, or the
// payload itself when it has none.
func unwrapEnvelope(payload ir.Value) ir.Value {
	if obj, ok := payload.(ir.Object); ok {
		if inner, ok := obj[assoc.EnvelopeRoot]; ok {
			return inner
		}
	}
	if payload == nil {
		return ir.Null{}
	}
	return payload
}

// externalIDPrefix marks the external id derived from a record's code.
const externalIDPrefix = "code:"

// replaceExternalIDs returns a copy of payload where every record (a
// top-level object, or an element of a top-level list) has its id
// replaced by its first "code:" external id.
func replaceExternalIDs(payload ir.Object) ir.Object {
	out := payload.Clone()
	for name, v := range payload {
		switch val := v.(type) {
		case ir.List:
			items := make(ir.List, len(val))
			for i, item := range val {
				items[i] = replaceExternalID(item)
			}
			out[name] = items
		default:
			out[name] = replaceExternalID(val)
		}
	}
	return out
}

func replaceExternalID(v ir.Value) ir.Value {
	record, ok := v.(ir.Object)
	if !ok {
		return v
	}
	if _, ok := record["id"]; !ok {
		return v
	}
	for _, ext := range record.List("external-ids") {
		s, ok := ext.(ir.String)
		if ok && strings.HasPrefix(string(s), externalIDPrefix) {
			out := record.Clone()
			out["id"] = s
			return out
		}
	}
	return v
}
