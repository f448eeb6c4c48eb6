package assoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flexiq/internal/queryir"
)

func TestPlan_NoAssociations(t *testing.T) {
	q := queryir.Query{Resource: "adresar", Selection: queryir.Fields("id"), DetailFullOnAssociations: true}

	out, err := Plan(q)
	require.NoError(t, err)

	assert.Empty(t, out.Includes)
	assert.Empty(t, out.Relations)
	assert.False(t, out.DetailFull)
	assert.Equal(t, q.Selection, out.Selection)
}

func TestPlan_Kinds(t *testing.T) {
	tests := []struct {
		name          string
		association   queryir.Association
		wantIncludes  []string
		wantRelations []string
		wantSelection string
	}{
		{
			name:          "many to one",
			association:   queryir.Association{PropertyName: "company", Kind: queryir.ManyToOne, ReferencingKey: "firma", TargetSelection: queryir.Fields("id", "kod")},
			wantIncludes:  []string{"/faktura-vydana/firma"},
			wantRelations: []string{"firma"},
			wantSelection: "id,kod,firma(id,kod)",
		},
		{
			name:          "one to one without target selection",
			association:   queryir.Association{PropertyName: "center", Kind: queryir.OneToOne, ReferencingKey: "stredisko"},
			wantIncludes:  []string{"/faktura-vydana/stredisko"},
			wantRelations: []string{"stredisko"},
			wantSelection: "id,kod,stredisko",
		},
		{
			name:          "one to many",
			association:   queryir.Association{PropertyName: "items", Kind: queryir.OneToMany, ReferencedKey: "polozkyFaktury", TargetSelection: queryir.Fields("cenaMj")},
			wantRelations: []string{"polozkyFaktury"},
			wantSelection: "id,kod,polozkyFaktury(cenaMj)",
		},
		{
			name: "many to many built-in links",
			association: queryir.Association{
				PropertyName: "orders", Kind: queryir.ManyToMany,
				JoinKey: queryir.JoinBuiltinLinks, JoinResource: "typVazbyDokl.obchod_zaloha_hla", ReferencingKey: "a",
				TargetSelection: queryir.Fields("id", "kod"),
			},
			wantIncludes:  []string{"/winstrom/faktura-vydana/vazby/vazba/a"},
			wantRelations: []string{"vazby"},
			wantSelection: "id,kod,vazby(typVazbyK,a(id,kod))",
		},
		{
			name: "many to many custom links",
			association: queryir.Association{
				PropertyName: "contracts", Kind: queryir.ManyToMany,
				JoinKey: queryir.JoinCustomLinks, JoinResource: "code:SMLOUVA", ReferencingKey: "object",
				TargetSelection: queryir.Fields("id"),
			},
			wantIncludes:  []string{"/winstrom/faktura-vydana/uzivatelske-vazby/uzivatelska-vazba/object"},
			wantRelations: []string{"uzivatelske-vazby"},
			wantSelection: "id,kod,uzivatelske-vazby(vazbaTyp,object(id))",
		},
		{
			name: "custom links default to object side",
			association: queryir.Association{
				PropertyName: "contracts", Kind: queryir.ManyToMany,
				JoinKey: queryir.JoinCustomLinks, JoinResource: "code:SMLOUVA",
			},
			wantIncludes:  []string{"/winstrom/faktura-vydana/uzivatelske-vazby/uzivatelska-vazba/object"},
			wantRelations: []string{"uzivatelske-vazby"},
			wantSelection: "id,kod,uzivatelske-vazby(vazbaTyp,object)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := queryir.Query{
				Resource:     "faktura-vydana",
				Selection:    queryir.Fields("id", "kod"),
				Associations: []queryir.Association{tt.association},
			}

			out, err := Plan(q)
			require.NoError(t, err)

			assert.Equal(t, tt.wantIncludes, out.Includes)
			assert.Equal(t, tt.wantRelations, out.Relations)
			assert.Equal(t, tt.wantSelection, out.Selection.String())
		})
	}
}

func TestPlan_DeduplicatesInFirstSeenOrder(t *testing.T) {
	q := queryir.Query{
		Resource: "faktura-vydana",
		Associations: []queryir.Association{
			{PropertyName: "orders", Kind: queryir.ManyToMany, JoinKey: queryir.JoinBuiltinLinks, JoinResource: "x", ReferencingKey: "a"},
			{PropertyName: "company", Kind: queryir.ManyToOne, ReferencingKey: "firma"},
			{PropertyName: "invoices", Kind: queryir.ManyToMany, JoinKey: queryir.JoinBuiltinLinks, JoinResource: "y", ReferencingKey: "a"},
			{PropertyName: "payer", Kind: queryir.ManyToOne, ReferencingKey: "firma"},
		},
	}

	out, err := Plan(q)
	require.NoError(t, err)

	assert.Equal(t, []string{"/winstrom/faktura-vydana/vazby/vazba/a", "/faktura-vydana/firma"}, out.Includes)
	assert.Equal(t, []string{"vazby", "firma"}, out.Relations)
}

func TestPlan_SelectionOnlyMergedIntoExplicitSelection(t *testing.T) {
	q := queryir.Query{
		Resource:     "faktura-vydana",
		Associations: []queryir.Association{{PropertyName: "company", Kind: queryir.ManyToOne, ReferencingKey: "firma", TargetSelection: queryir.Fields("kod")}},
	}

	out, err := Plan(q)
	require.NoError(t, err)

	assert.Nil(t, out.Selection)
	assert.Equal(t, []string{"firma"}, out.Relations)
}

func TestPlan_SelectionMergeIsIdempotent(t *testing.T) {
	a := queryir.Association{PropertyName: "company", Kind: queryir.ManyToOne, ReferencingKey: "firma", TargetSelection: queryir.Fields("kod")}
	q := queryir.Query{
		Resource:     "faktura-vydana",
		Selection:    queryir.Select(queryir.Leaf("id"), queryir.Branch("firma", queryir.Leaf("kod"))),
		Associations: []queryir.Association{a, a},
	}

	out, err := Plan(q)
	require.NoError(t, err)

	assert.Equal(t, "id,firma(kod)", out.Selection.String())
}

func TestPlan_DetailFull(t *testing.T) {
	manyToOne := queryir.Association{PropertyName: "company", Kind: queryir.ManyToOne, ReferencingKey: "firma"}
	priceLevels := queryir.Association{PropertyName: "levels", Kind: queryir.OneToMany, ReferencedKey: "cenHladiny"}

	tests := []struct {
		name     string
		query    queryir.Query
		wantFull bool
	}{
		{
			name:     "associations with flag",
			query:    queryir.Query{Resource: "faktura-vydana", DetailFullOnAssociations: true, Associations: []queryir.Association{manyToOne}},
			wantFull: true,
		},
		{
			name:     "associations without flag",
			query:    queryir.Query{Resource: "faktura-vydana", Associations: []queryir.Association{manyToOne}},
			wantFull: false,
		},
		{
			name:     "flag without associations",
			query:    queryir.Query{Resource: "faktura-vydana", DetailFullOnAssociations: true},
			wantFull: false,
		},
		{
			name:     "address book price levels force detail full",
			query:    queryir.Query{Resource: "adresar", Associations: []queryir.Association{priceLevels}},
			wantFull: true,
		},
		{
			name:     "price levels on another resource",
			query:    queryir.Query{Resource: "cenik", Associations: []queryir.Association{priceLevels}},
			wantFull: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Plan(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFull, out.DetailFull)
		})
	}
}

func TestPlan_ErrorsLeaveQueryUntouched(t *testing.T) {
	tests := []struct {
		name  string
		bad   queryir.Association
		check func(error) bool
	}{
		{
			name:  "unsupported kind",
			bad:   queryir.Association{PropertyName: "x", Kind: "n:n"},
			check: IsUnsupportedKind,
		},
		{
			name:  "unexpected join key",
			bad:   queryir.Association{PropertyName: "x", Kind: queryir.ManyToMany, JoinKey: "links"},
			check: IsUnexpectedJoinKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := queryir.Query{
				Resource:  "adresar",
				Selection: queryir.Fields("id"),
				Associations: []queryir.Association{
					{PropertyName: "company", Kind: queryir.ManyToOne, ReferencingKey: "firma", TargetSelection: queryir.Fields("kod")},
					tt.bad,
				},
			}
			before := q.Clone()

			out, err := Plan(q)
			require.Error(t, err)
			assert.True(t, tt.check(err))
			assert.Equal(t, before, q)
			assert.Equal(t, before, out)
			assert.Empty(t, out.Includes)
		})
	}
}

func TestPlan_DoesNotModifyInput(t *testing.T) {
	q := queryir.Query{
		Resource:     "faktura-vydana",
		Selection:    queryir.Fields("id"),
		Associations: []queryir.Association{{PropertyName: "company", Kind: queryir.ManyToOne, ReferencingKey: "firma", TargetSelection: queryir.Fields("kod")}},
	}
	before := q.Clone()

	out, err := Plan(q)
	require.NoError(t, err)
	out.Selection[0].Name = "changed"
	out.Associations[0].TargetSelection[0].Name = "changed"

	assert.Equal(t, before, q)
}

func TestErrorMessage(t *testing.T) {
	err := NewUnsupportedKindError(queryir.Association{PropertyName: "x", Kind: "n:n"})
	assert.Equal(t, `UNSUPPORTED_ASSOCIATION_KIND: unsupported association "n:n" (property=x)`, err.Error())

	err = &Error{Code: ErrCodeUnexpectedJoinKey, Message: "bad"}
	assert.Equal(t, "UNEXPECTED_ASSOCIATION_JOIN_KEY: bad", err.Error())
}
