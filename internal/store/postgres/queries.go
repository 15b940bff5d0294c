package postgres

const queryLoadAllEvents = `
SELECT doc
FROM events
ORDER BY id
`

const queryGetEvent = `
SELECT doc
FROM events
WHERE id = $1
`

const queryUpsertEvent = `
INSERT INTO events (id, doc, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (id) DO UPDATE
SET doc = EXCLUDED.doc, updated_at = NOW()
`

const queryDeleteEvent = `
DELETE FROM events
WHERE id = $1
RETURNING id
`

const queryInsertDeliveryAttempt = `
INSERT INTO delivery_attempts (id, event_id, attempt, status_code, error, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

const queryUpcomingEvents = `
SELECT doc
FROM events
WHERE doc->>'status' = 'upcoming'
   OR doc->>'status' = 'ongoing'
ORDER BY doc->>'start_datetime'
LIMIT $1
`
