// Package keysearch finds key identifiers by fuzzy matching a query against
// their canonical names and aliases.
//
// Every query character must appear in the candidate text in order.
// Matches are ranked by how tightly the characters cluster, whether they
// fall on word boundaries (start of text, after punctuation, camelCase
// humps) and whether the query is a prefix of the text.
//
//	s := keysearch.New(key.Default())
//	for _, m := range s.Search("pgd", 5) {
//	    fmt.Println(m.ID, m.Text)
//	}
//
// A key matched through several spellings is reported once, with its best
// scoring spelling.
package keysearch
