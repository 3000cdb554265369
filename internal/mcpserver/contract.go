package mcpserver

// RecordFormatContract describes how typed records are laid out inside
// notes so LLM consumers can read raw documents and write plain notes
// without colliding with them.
const RecordFormatContract = `# Sanctum Record Format

Every record is a note whose title starts with a reserved tag and whose
content is a JSON object. Plain notes are every note whose title starts
with none of the tags.

## Tags

| Domain      | Title tag     | Title after the tag          |
|-------------|---------------|------------------------------|
| book        | BOOK:         | <title> by <author>          |
| goal        | GOAL:         | <title>                      |
| transaction | FINANCE:      | <type> - <description>       |
| journal     | JOURNAL:      | <date> - <title>             |
| meditation  | MEDITATION:   | <minutes> min <technique> - <date> |
| detox       | DETOX:        | HH:MM:SS - <date>            |

The part of the title after the tag is for humans only. The content is
the single source of truth.

## Fields

- **book**: title, author (required), totalPages, currentPage, status
  (want_to_read | reading | finished | paused), rating (0-5), notes, genre,
  dateAdded. Reaching the last page or giving any rating finishes a book.
- **goal**: title (required), description, status (not_started |
  in_progress | finished | paused), progress (0-100), dueDate.
- **transaction**: type (income | expense), amount (> 0), description
  (required), category, date (YYYY-MM-DD).
- **journal**: content (required), title, date. #hashtags in the content
  are counted in the journal stats.
- **meditation**: duration in minutes (required), technique, date.
- **detox**: start_time, end_time (RFC 3339), duration_seconds. Sessions of
  5 seconds or less are never stored.

## Rules

1. Never create a plain note whose title starts with a reserved tag; the
   store rejects it.
2. Use the typed tools (save_record, log_transaction, ...) to write records.
   They fill defaults, clamp values and validate before anything is stored.
3. Dates are ` + "`YYYY-MM-DD`" + `; instants are RFC 3339 in UTC.
`
