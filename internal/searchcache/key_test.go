package searchcache

import "testing"

func TestBuildKeyNormalizesCaseAndWhitespace(t *testing.T) {
	a := BuildKey(Query{Title: "Backend  Engineer", Location: "New York"})
	b := BuildKey(Query{Title: "backend engineer", Location: " new   york "})
	if a != b {
		t.Fatalf("keys differ for logically identical queries:\n%s\n%s", a, b)
	}
}

func TestBuildKeyIgnoresSourceOrderAndDuplicates(t *testing.T) {
	a := BuildKey(Query{Title: "engineer", Sources: []string{"LinkedIn", "indeed", "linkedin"}})
	b := BuildKey(Query{Title: "engineer", Sources: []string{"Indeed", "LinkedIn"}})
	if a != b {
		t.Fatalf("keys differ for equivalent source lists:\n%s\n%s", a, b)
	}
}

func TestBuildKeyDistinguishesQueries(t *testing.T) {
	base := Query{Title: "engineer", Location: "remote"}
	variants := []Query{
		{Title: "manager", Location: "remote"},
		{Title: "engineer", Location: "onsite"},
		{Title: "engineer", Location: "remote", DatePosted: "week"},
		{Title: "engineer", Location: "remote", Sources: []string{"indeed"}},
	}
	baseKey := BuildKey(base)
	for _, v := range variants {
		if BuildKey(v) == baseKey {
			t.Fatalf("query %+v collides with base", v)
		}
	}
}
