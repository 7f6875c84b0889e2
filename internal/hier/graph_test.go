package hier

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/sentra-core/internal/models"
)

func buildTestGraph(t *testing.T, edges ...[2]string) *Graph {
	t.Helper()
	g := NewGraph()
	for _, e := range edges {
		require.NoError(t, g.Validate(e[0], e[1], false))
		g.AddEdge(e[0], e[1])
	}
	return g
}

func TestGraph_ValidateSelfLoop(t *testing.T) {
	g := NewGraph()

	err := g.Validate("ENGINEER", "engineer", false)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, CodeInvalidRelationship, verr.Code)
}

func TestGraph_ValidateDuplicate(t *testing.T) {
	g := buildTestGraph(t, [2]string{"ENGINEER", "EMPLOYEE"})

	err := g.Validate("ENGINEER", "EMPLOYEE", false)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, CodeRelationshipExists, verr.Code)
}

func TestGraph_ValidateTransitiveDuplicate(t *testing.T) {
	// ENGINEER -> EMPLOYEE -> PERSON: adding ENGINEER -> PERSON is redundant
	// and must be reported as "already exists", not as cyclic.
	g := buildTestGraph(t,
		[2]string{"ENGINEER", "EMPLOYEE"},
		[2]string{"EMPLOYEE", "PERSON"},
	)

	err := g.Validate("ENGINEER", "PERSON", false)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, CodeRelationshipExists, verr.Code)
}

func TestGraph_ValidateCycle(t *testing.T) {
	g := buildTestGraph(t,
		[2]string{"ENGINEER", "EMPLOYEE"},
		[2]string{"EMPLOYEE", "PERSON"},
	)

	err := g.Validate("PERSON", "ENGINEER", false)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, CodeRelationshipCyclic, verr.Code)
}

func TestGraph_ValidateMustExist(t *testing.T) {
	g := buildTestGraph(t, [2]string{"ENGINEER", "EMPLOYEE"})

	assert.NoError(t, g.Validate("ENGINEER", "EMPLOYEE", true))

	err := g.Validate("ENGINEER", "PERSON", true)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, CodeRelationshipNotFound, verr.Code)
}

func TestGraph_AscendantsTransitive(t *testing.T) {
	g := buildTestGraph(t,
		[2]string{"ENGINEER", "EMPLOYEE"},
		[2]string{"EMPLOYEE", "PERSON"},
		[2]string{"DBA", "EMPLOYEE"},
	)

	assert.Equal(t, []string{"EMPLOYEE", "PERSON"}, g.Ascendants("ENGINEER"))
	assert.Equal(t, []string{"PERSON"}, g.Ascendants("EMPLOYEE"))
	assert.Empty(t, g.Ascendants("PERSON"))
}

func TestGraph_AscendantsCaseInsensitive(t *testing.T) {
	g := buildTestGraph(t, [2]string{"ENGINEER", "EMPLOYEE"})

	// Query with lowercase, expect canonical uppercase output.
	assert.Equal(t, []string{"EMPLOYEE"}, g.Ascendants("engineer"))
	assert.True(t, g.HasEdge("engineer", "employee"))
}

func TestGraph_AscendantsMissingNode(t *testing.T) {
	g := NewGraph()
	got := g.Ascendants("GHOST")
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGraph_AscendantDescendantDuality(t *testing.T) {
	g := buildTestGraph(t,
		[2]string{"ENGINEER", "EMPLOYEE"},
		[2]string{"EMPLOYEE", "PERSON"},
		[2]string{"DBA", "EMPLOYEE"},
		[2]string{"LEAD", "ENGINEER"},
	)

	nodes := []string{"ENGINEER", "EMPLOYEE", "PERSON", "DBA", "LEAD"}
	for _, x := range nodes {
		for _, y := range nodes {
			inAsc := contains(g.Ascendants(x), y)
			inDesc := contains(g.Descendants(y), x)
			assert.Equal(t, inAsc, inDesc, "duality broken for x=%s y=%s", x, y)
		}
	}
}

func TestGraph_AscendantsUntil(t *testing.T) {
	// LEAD -> ENGINEER -> EMPLOYEE -> PERSON -> ROOT
	g := buildTestGraph(t,
		[2]string{"LEAD", "ENGINEER"},
		[2]string{"ENGINEER", "EMPLOYEE"},
		[2]string{"EMPLOYEE", "PERSON"},
		[2]string{"PERSON", "ROOT"},
	)

	assert.Equal(t, []string{"EMPLOYEE", "ENGINEER"},
		g.AscendantsUntil("LEAD", "PERSON", false))
	assert.Equal(t, []string{"EMPLOYEE", "ENGINEER", "PERSON"},
		g.AscendantsUntil("LEAD", "PERSON", true))
}

func TestGraph_ChildrenAndParentsOneHop(t *testing.T) {
	g := buildTestGraph(t,
		[2]string{"ENGINEER", "EMPLOYEE"},
		[2]string{"DBA", "EMPLOYEE"},
		[2]string{"EMPLOYEE", "PERSON"},
	)

	assert.Equal(t, []string{"DBA", "ENGINEER"}, g.Children("EMPLOYEE"))
	assert.Equal(t, []string{"PERSON"}, g.Parents("EMPLOYEE"))
	assert.Equal(t, 2, g.NumChildren("EMPLOYEE"))
	assert.Equal(t, 0, g.NumChildren("ENGINEER"))
}

func TestGraph_MultipleParents(t *testing.T) {
	g := buildTestGraph(t,
		[2]string{"ONCALL", "ENGINEER"},
		[2]string{"ONCALL", "OPERATOR"},
		[2]string{"ENGINEER", "EMPLOYEE"},
		[2]string{"OPERATOR", "EMPLOYEE"},
	)

	assert.Equal(t, []string{"EMPLOYEE", "ENGINEER", "OPERATOR"}, g.Ascendants("ONCALL"))
}

func TestGraph_RemoveEdge(t *testing.T) {
	g := buildTestGraph(t,
		[2]string{"ENGINEER", "EMPLOYEE"},
		[2]string{"EMPLOYEE", "PERSON"},
	)

	g.RemoveEdge(models.Relationship{Child: "ENGINEER", Parent: "EMPLOYEE"})

	assert.False(t, g.HasEdge("ENGINEER", "EMPLOYEE"))
	assert.Empty(t, g.Ascendants("ENGINEER"))
	// A removed edge may be re-validated and re-added.
	assert.NoError(t, g.Validate("ENGINEER", "EMPLOYEE", false))
}

func TestBuildGraph_DropsDuplicatesAndGarbage(t *testing.T) {
	g := BuildGraph([]models.Relationship{
		{Child: "engineer", Parent: "employee"},
		{Child: "ENGINEER", Parent: "EMPLOYEE"}, // duplicate modulo case
		{Child: "EMPLOYEE", Parent: "EMPLOYEE"}, // self-loop
		{Child: "", Parent: "EMPLOYEE"},         // malformed
		{Child: "EMPLOYEE", Parent: "PERSON"},
	}, nil)

	rels := g.Relationships()
	require.Len(t, rels, 2)
	assert.Equal(t, models.Relationship{Child: "EMPLOYEE", Parent: "PERSON"}, rels[0])
	assert.Equal(t, models.Relationship{Child: "ENGINEER", Parent: "EMPLOYEE"}, rels[1])
}

func TestGraph_AcyclicUnderValidatedMutation(t *testing.T) {
	// Any sequence of Validate+AddEdge where AddEdge only runs after a clean
	// Validate must leave the graph a DAG: no node is its own ascendant.
	g := NewGraph()
	edges := [][2]string{
		{"A", "B"}, {"B", "C"}, {"C", "D"}, {"D", "A"}, // last one must fail
		{"E", "C"}, {"A", "E"}, {"C", "A"}, // C->A must fail (A -> B -> C)
	}
	for _, e := range edges {
		if err := g.Validate(e[0], e[1], false); err == nil {
			g.AddEdge(e[0], e[1])
		}
	}

	for _, node := range []string{"A", "B", "C", "D", "E"} {
		assert.NotContains(t, g.Ascendants(node), node, "node %s is its own ascendant", node)
	}
}

func TestGraph_ConcurrentReadersAndWriters(t *testing.T) {
	g := buildTestGraph(t, [2]string{"ENGINEER", "EMPLOYEE"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g.Ascendants("ENGINEER")
				g.NumChildren("EMPLOYEE")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g.AddEdge("DBA", "EMPLOYEE")
				g.RemoveEdge(models.Relationship{Child: "DBA", Parent: "EMPLOYEE"})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"EMPLOYEE"}, g.Ascendants("ENGINEER"))
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
