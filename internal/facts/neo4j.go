package facts

import (
	"context"

	"github.com/turtacn/docintel/internal/domain/docmodel"
	"github.com/turtacn/docintel/internal/infrastructure/database/neo4j"
	"github.com/turtacn/docintel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/docintel/pkg/errors"
)

// GraphMirror durably records fact conflicts as graph edges so a caller can
// later ask what was previously believed about a subject even after the
// in-memory Index has been rebuilt. It never serves reads the in-memory
// Index itself serves — it backs the "what did we used to believe" query
// path only.
type GraphMirror struct {
	driver *neo4j.Driver
	logger logging.Logger
}

// NewGraphMirror constructs a GraphMirror over an already-connected driver.
func NewGraphMirror(driver *neo4j.Driver, log logging.Logger) *GraphMirror {
	return &GraphMirror{driver: driver, logger: log}
}

// RecordConflict upserts both facts as Subject/Object nodes connected by a
// predicate-labelled edge, tagged with the conflict reason, so the
// disagreement survives an in-memory index rebuild.
func (g *GraphMirror) RecordConflict(ctx context.Context, conflict docmodel.FactConflict) error {
	_, err := g.driver.ExecuteWrite(ctx, func(tx neo4j.Transaction) (interface{}, error) {
		_, err := tx.Run(ctx, `
			MERGE (s:Subject {key: $subject})
			MERGE (existingObj:Object {value: $existingObject})
			MERGE (conflictingObj:Object {value: $conflictingObject})
			MERGE (s)-[:ASSERTED {predicate: $predicate, file: $existingFile}]->(existingObj)
			MERGE (s)-[:ASSERTED {predicate: $predicate, file: $conflictingFile}]->(conflictingObj)
			MERGE (existingObj)-[:CONFLICTS_WITH {reason: $reason}]->(conflictingObj)
		`, map[string]any{
			"subject":          normalize(conflict.Existing.Subject),
			"predicate":        normalize(conflict.Existing.Predicate),
			"existingObject":   conflict.Existing.CanonicalObject,
			"conflictingObject": conflict.Conflicting.CanonicalObject,
			"existingFile":     conflict.Existing.File,
			"conflictingFile":  conflict.Conflicting.File,
			"reason":           conflict.Reason,
		})
		return nil, err
	})
	if err != nil {
		g.logger.Error("failed to record fact conflict in graph mirror", logging.Err(err))
		return errors.Wrap(err, errors.CodeDatabaseError, "facts: recording conflict failed")
	}
	return nil
}

// History returns every object value recorded for subject/predicate, for
// "what did we used to believe" queries. The query does not sort, so the
// order of the returned values is not defined.
func (g *GraphMirror) History(ctx context.Context, subject, predicate string) ([]string, error) {
	result, err := g.driver.ExecuteRead(ctx, func(tx neo4j.Transaction) (interface{}, error) {
		res, err := tx.Run(ctx, `
			MATCH (s:Subject {key: $subject})-[r:ASSERTED {predicate: $predicate}]->(o:Object)
			RETURN o.value AS value
		`, map[string]any{"subject": normalize(subject), "predicate": normalize(predicate)})
		if err != nil {
			return nil, err
		}

		var values []string
		for res.Next(ctx) {
			if v, ok := res.Record().Get("value"); ok {
				if s, ok := v.(string); ok {
					values = append(values, s)
				}
			}
		}
		return values, res.Err()
	})
	if err != nil {
		g.logger.Error("failed to read fact history from graph mirror", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "facts: reading history failed")
	}

	values, _ := result.([]string)
	return values, nil
}
