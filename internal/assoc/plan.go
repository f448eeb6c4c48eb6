package assoc

import (
	"slices"

	"github.com/roach88/flexiq/internal/queryir"
)

// Plan resolves the associations of q into the includes, relations and
// selection additions that fetch them in the same round trip.
//
// Plan returns a new Query. The input is never modified, so a failing
// association leaves the caller's query exactly as it was.
//
// Per kind:
//   - n:1, 1:1: include /<resource>/<referencingKey>, relation
//     <referencingKey>, selection subtree at <referencingKey>
//   - 1:n: relation <referencedKey>, selection subtree at <referencedKey>
//   - m:n built-in links: relation vazby, include
//     /winstrom/<resource>/vazby/vazba/<side>, selection
//     vazby(typVazbyK,<side>(...))
//   - m:n user-defined links: relation uzivatelske-vazby, include
//     /winstrom/<resource>/uzivatelske-vazby/uzivatelska-vazba/object,
//     selection uzivatelske-vazby(vazbaTyp,object(...))
//
// Includes and relations keep first-seen order without duplicates.
// Selection subtrees are merged only when the query has an explicit
// selection; otherwise the service's default fields are requested.
func Plan(q queryir.Query) (queryir.Query, error) {
	out := q.Clone()

	for _, a := range q.Associations {
		step, err := planAssociation(q.Resource, a)
		if err != nil {
			return q, err
		}

		for _, inc := range step.includes {
			out.Includes = appendUnique(out.Includes, inc)
		}
		for _, rel := range step.relations {
			out.Relations = appendUnique(out.Relations, rel)
		}
		if len(out.Selection) > 0 {
			out.Selection = queryir.Merge(out.Selection, step.selection)
		}
	}

	hasJoins := len(out.Includes) > 0 || len(out.Relations) > 0
	out.DetailFull = hasJoins && (q.DetailFullOnAssociations || addressBookPriceLevelQuirk(q.Resource, out.Relations))

	return out, nil
}

// planStep is what one association contributes to the request.
type planStep struct {
	includes  []string
	relations []string
	selection queryir.SelectionTree
}

func planAssociation(resource string, a queryir.Association) (planStep, error) {
	switch a.Kind {
	case queryir.ManyToOne, queryir.OneToOne:
		return planStep{
			includes:  []string{"/" + resource + "/" + a.ReferencingKey},
			relations: []string{a.ReferencingKey},
			selection: queryir.Select(subtree(a.ReferencingKey, a.TargetSelection)),
		}, nil

	case queryir.OneToMany:
		return planStep{
			relations: []string{a.ReferencedKey},
			selection: queryir.Select(subtree(a.ReferencedKey, a.TargetSelection)),
		}, nil

	case queryir.ManyToMany:
		return planManyToMany(resource, a)

	default:
		return planStep{}, NewUnsupportedKindError(a)
	}
}

func planManyToMany(resource string, a queryir.Association) (planStep, error) {
	switch a.JoinKey {
	case queryir.JoinBuiltinLinks:
		return planStep{
			includes:  []string{"/" + envelopeRoot + "/" + resource + "/" + builtinLinksRelation + "/" + builtinLinkEntry + "/" + a.ReferencingKey},
			relations: []string{builtinLinksRelation},
			selection: queryir.Select(queryir.Branch(builtinLinksRelation,
				queryir.Leaf(builtinLinkType),
				subtree(a.ReferencingKey, a.TargetSelection),
			)),
		}, nil

	case queryir.JoinCustomLinks:
		return planStep{
			includes:  []string{"/" + envelopeRoot + "/" + resource + "/" + customLinksRelation + "/" + customLinkEntry + "/" + customLinkObject},
			relations: []string{customLinksRelation},
			selection: queryir.Select(queryir.Branch(customLinksRelation,
				queryir.Leaf(customLinkType),
				subtree(customLinkSide(a), a.TargetSelection),
			)),
		}, nil

	default:
		return planStep{}, NewUnexpectedJoinKeyError(a)
	}
}

// subtree selects name with the target fields below it, or name alone
// when the association has no target selection.
func subtree(name string, target queryir.SelectionTree) queryir.SelectionNode {
	if len(target) == 0 {
		return queryir.Leaf(name)
	}
	return queryir.SelectionNode{Name: name, Children: target.Clone()}
}

// customLinkSide is the attribute holding the linked record of a
// user-defined link.
func customLinkSide(a queryir.Association) string {
	if a.ReferencingKey != "" {
		return a.ReferencingKey
	}
	return customLinkObject
}

// addressBookPriceLevelQuirk reports whether the service needs detail=full
// regardless of configuration: the address book returns an incomplete
// price-level relation otherwise.
func addressBookPriceLevelQuirk(resource string, relations []string) bool {
	return resource == "adresar" && slices.Contains(relations, "cenHladiny")
}

func appendUnique(list []string, item string) []string {
	if slices.Contains(list, item) {
		return list
	}
	return append(list, item)
}
