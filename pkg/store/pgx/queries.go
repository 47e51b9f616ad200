package pgx

const createGraphSQL = `
INSERT INTO graphs (id, name)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name,
    updated_at = now();
`

const getGraphSQL = `
SELECT g.name,
       (SELECT count(*) FROM graph_nodes n WHERE n.graph_id = g.id)::int,
       (SELECT count(*) FROM graph_relations r WHERE r.graph_id = g.id)::int,
       (SELECT count(*) FROM community_summaries c WHERE c.graph_id = g.id)::int
FROM graphs g
WHERE g.id = $1;
`

const graphExistsSQL = `
SELECT EXISTS (SELECT 1 FROM graphs WHERE id = $1);
`

const deleteGraphSQL = `
DELETE FROM graphs WHERE id = $1;
`

const touchGraphSQL = `
UPDATE graphs SET updated_at = now() WHERE id = $1;
`

const upsertNodeSQL = `
INSERT INTO graph_nodes (graph_id, id, name, label, properties)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (graph_id, id) DO UPDATE
SET name = EXCLUDED.name,
    label = EXCLUDED.label,
    properties = EXCLUDED.properties;
`

const upsertRelationSQL = `
INSERT INTO graph_relations (graph_id, source_id, label, target_id, properties)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (graph_id, source_id, label, target_id) DO UPDATE
SET properties = EXCLUDED.properties,
    position = nextval(pg_get_serial_sequence('graph_relations', 'position'));
`

const loadNodesSQL = `
SELECT id, name, label, properties
FROM graph_nodes
WHERE graph_id = $1
ORDER BY position;
`

const loadRelationsSQL = `
SELECT source_id, label, target_id, properties
FROM graph_relations
WHERE graph_id = $1
ORDER BY position;
`

const deleteSummariesSQL = `
DELETE FROM community_summaries WHERE graph_id = $1;
`

const insertSummarySQL = `
INSERT INTO community_summaries (graph_id, cluster, summary, embedding)
VALUES ($1, $2, $3, $4);
`

const loadSummariesSQL = `
SELECT cluster, summary
FROM community_summaries
WHERE graph_id = $1
ORDER BY cluster;
`

const nearestCommunitiesSQL = `
SELECT cluster
FROM community_summaries
WHERE graph_id = $1 AND embedding IS NOT NULL
ORDER BY embedding <=> $2, cluster
LIMIT $3;
`
