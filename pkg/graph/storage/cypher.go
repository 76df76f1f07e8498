package storage

import (
	"fmt"
	"regexp"
)

// Cypher cannot parameterize node labels or relationship types, so upsert
// statements interpolate them into the query text. Anything interpolated
// must match identifierPattern; node names and tags always travel as
// parameters.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const (
	// clearPipelineStatement removes every relationship written under a
	// pipeline tag. Node cleanup is a separate, global sweep.
	clearPipelineStatement = `MATCH ()-[r]->() WHERE r.pipeline = $tag DELETE r`

	// deleteOrphansStatement drops nodes left without any relationship,
	// regardless of which pipeline created them.
	deleteOrphansStatement = `MATCH (n) WHERE NOT (n)--() DELETE n`

	countNodesStatement         = `MATCH (n) RETURN count(n) AS count`
	countRelationshipsStatement = `MATCH ()-[r]->() RETURN count(r) AS count`
)

func validIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// mergeTripleStatement renders the idempotent upsert for one triple: both
// nodes and the relationship are MERGEd, and the relationship is tagged
// with the pipeline that produced it. Callers bind $head, $tail and
// $pipeline_tag.
func mergeTripleStatement(headLabel, relation, tailLabel string) (string, error) {
	for _, ident := range []string{headLabel, relation, tailLabel} {
		if !validIdentifier(ident) {
			return "", fmt.Errorf("unsafe cypher identifier: %q", ident)
		}
	}
	stmt := fmt.Sprintf(`
        MERGE (h:%s {name: $head})
        MERGE (t:%s {name: $tail})
        MERGE (h)-[r:%s]->(t)
        SET r.pipeline = $pipeline_tag
        `, headLabel, tailLabel, relation)
	return stmt, nil
}
