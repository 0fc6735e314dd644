// Package errors provides centralized error code definitions for the docintel
// core. All error codes are grouped by concern and mapped to HTTP status codes.
package errors

import "net/http"

// ErrorCode represents a typed error code used throughout docintel.
// Codes are partitioned by domain to avoid conflicts and simplify maintenance.
type ErrorCode int

// ─────────────────────────────────────────────────────────────────────────────
// General / cross-cutting error codes  (1xxxx)
// ─────────────────────────────────────────────────────────────────────────────
const (
	// CodeOK indicates no error.
	CodeOK ErrorCode = 0

	// CodeUnknown is a catch-all for errors that have not been categorised.
	CodeUnknown ErrorCode = 10000

	// CodeInvalidParam is returned when one or more request parameters fail
	// validation (missing required fields, type mismatch, out-of-range values, etc.).
	CodeInvalidParam ErrorCode = 10001

	// CodeUnauthorized is returned when a request lacks valid authentication credentials.
	CodeUnauthorized ErrorCode = 10002

	// CodeForbidden is returned when authenticated credentials do not grant access
	// to the requested resource or action.
	CodeForbidden ErrorCode = 10003

	// CodeNotFound is returned when the requested resource does not exist.
	CodeNotFound ErrorCode = 10004

	// CodeConflict is returned when a create/update operation violates a uniqueness
	// or state constraint (e.g., duplicate resource, optimistic lock failure).
	CodeConflict ErrorCode = 10005

	// CodeRateLimit is returned when the caller has exceeded the allowed request rate.
	CodeRateLimit ErrorCode = 10006

	// CodeInternal is returned for unexpected server-side errors that are not
	// attributable to the caller.
	CodeInternal ErrorCode = 10007

	// CodeNotImplemented is returned when a requested operation is not yet implemented.
	CodeNotImplemented ErrorCode = 10008

	// CodeCancelled is returned when a request's context was cancelled or its
	// deadline exceeded before the operation completed.
	CodeCancelled ErrorCode = 10009

	// CodePayloadTooLarge is returned when a request body, document, or chunk
	// exceeds the configured size ceiling.
	CodePayloadTooLarge ErrorCode = 10010
)

// ─────────────────────────────────────────────────────────────────────────────
// Corpus / document error codes  (2xxxx)
// ─────────────────────────────────────────────────────────────────────────────
const (
	// CodeParseError is returned when a Markdown document cannot be split into
	// sections (malformed heading structure, unreadable encoding).
	CodeParseError ErrorCode = 20001

	// CodeSectionsNotFound is returned when a document exists but yields no
	// indexable sections after parsing.
	CodeSectionsNotFound ErrorCode = 20002

	// CodeChunkTooLarge is returned when a single section cannot be chunked
	// under the configured token ceiling even with maximal splitting.
	CodeChunkTooLarge ErrorCode = 20003

	// CodeFingerprintMismatch is returned internally when an index entry's
	// fingerprint disagrees with the filesystem state observed by a caller
	// holding a stale reference.
	CodeFingerprintMismatch ErrorCode = 20004
)

// ─────────────────────────────────────────────────────────────────────────────
// Retrieval / generation error codes  (3xxxx)
// ─────────────────────────────────────────────────────────────────────────────
const (
	// CodeProviderError is returned when an external embedding, generation, or
	// reranking provider fails or returns a malformed response.
	CodeProviderError ErrorCode = 30001

	// CodeNoHitsFound is returned when a search or answer request yields zero
	// candidate sections after retrieval.
	CodeNoHitsFound ErrorCode = 30002

	// CodeGroundingFailed is returned when a synthesized answer cannot be
	// attributed to any retrieved citation above the configured confidence floor.
	CodeGroundingFailed ErrorCode = 30003
)

// ─────────────────────────────────────────────────────────────────────────────
// Fact / knowledge error codes  (4xxxx)
// ─────────────────────────────────────────────────────────────────────────────
const (
	// CodeFactConflict is returned when a newly extracted fact contradicts an
	// existing fact sharing the same subject/predicate key.
	CodeFactConflict ErrorCode = 40001

	// CodeFactDuplicate is returned when an extracted fact is identical to one
	// already present in the fact index.
	CodeFactDuplicate ErrorCode = 40002
)

// ─────────────────────────────────────────────────────────────────────────────
// Update-agent error codes  (5xxxx)
// ─────────────────────────────────────────────────────────────────────────────
const (
	// CodeUpdateConflict is returned when applying a suggested update would
	// overwrite a document whose fingerprint has changed since the suggestion
	// was generated.
	CodeUpdateConflict ErrorCode = 50001

	// CodeConfigError is returned when the loaded configuration fails
	// validation (missing required fields, out-of-range values, unknown
	// provider names).
	CodeConfigError ErrorCode = 50002

	// CodeIOError is returned when a filesystem read, write, or atomic rename
	// fails.
	CodeIOError ErrorCode = 50003
)

// ─────────────────────────────────────────────────────────────────────────────
// Infrastructure error codes  (7xxxx)
// ─────────────────────────────────────────────────────────────────────────────
const (
	// CodeDBConnectionError is returned when the application cannot establish or
	// re-use a connection to Postgres or Neo4j.
	CodeDBConnectionError ErrorCode = 70001

	// CodeCacheError is returned when a Redis operation (GET, SET, DEL, PUBLISH,
	// etc.) fails due to connection loss, timeout, or an unexpected response.
	CodeCacheError ErrorCode = 70002

	// CodeSearchError is returned when an OpenSearch or Milvus query or indexing
	// operation fails.
	CodeSearchError ErrorCode = 70003

	// CodeMessageQueueError is returned when producing to or consuming from a
	// Kafka topic fails (broker unavailable, serialisation error, offset commit, etc.).
	CodeMessageQueueError ErrorCode = 70004

	// CodeStorageError is returned when a MinIO object storage operation (upload,
	// download, stat, delete) fails.
	CodeStorageError ErrorCode = 70005

	// CodeDatabaseError is a general error for database-related failures that
	// are not specifically connection issues.
	CodeDatabaseError ErrorCode = 70006

	// CodeDBQueryError is returned when a database query fails due to syntax
	// errors, constraint violations (not covered by CodeConflict), or other
	// execution-time failures.
	CodeDBQueryError ErrorCode = 70007
)

// ─────────────────────────────────────────────────────────────────────────────
// String — human-readable name of the error code
// ─────────────────────────────────────────────────────────────────────────────

// String returns the human-readable name associated with an ErrorCode.
// It is safe to call on any value, including unknown codes.
func (c ErrorCode) String() string {
	switch c {
	// General
	case CodeOK:
		return "OK"
	case CodeUnknown:
		return "UNKNOWN"
	case CodeInvalidParam:
		return "INVALID_PARAM"
	case CodeUnauthorized:
		return "UNAUTHORIZED"
	case CodeForbidden:
		return "FORBIDDEN"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodeConflict:
		return "CONFLICT"
	case CodeRateLimit:
		return "RATE_LIMIT"
	case CodeInternal:
		return "INTERNAL_ERROR"
	case CodeNotImplemented:
		return "NOT_IMPLEMENTED"
	case CodeCancelled:
		return "CANCELLED"
	case CodePayloadTooLarge:
		return "PAYLOAD_TOO_LARGE"

	// Corpus / document
	case CodeParseError:
		return "PARSE_ERROR"
	case CodeSectionsNotFound:
		return "SECTIONS_NOT_FOUND"
	case CodeChunkTooLarge:
		return "CHUNK_TOO_LARGE"
	case CodeFingerprintMismatch:
		return "FINGERPRINT_MISMATCH"

	// Retrieval / generation
	case CodeProviderError:
		return "PROVIDER_ERROR"
	case CodeNoHitsFound:
		return "NO_HITS_FOUND"
	case CodeGroundingFailed:
		return "GROUNDING_FAILED"

	// Fact / knowledge
	case CodeFactConflict:
		return "FACT_CONFLICT"
	case CodeFactDuplicate:
		return "FACT_DUPLICATE"

	// Update agent
	case CodeUpdateConflict:
		return "UPDATE_CONFLICT"
	case CodeConfigError:
		return "CONFIG_ERROR"
	case CodeIOError:
		return "IO_ERROR"

	// Infrastructure
	case CodeDBConnectionError:
		return "DB_CONNECTION_ERROR"
	case CodeCacheError:
		return "CACHE_ERROR"
	case CodeSearchError:
		return "SEARCH_ERROR"
	case CodeMessageQueueError:
		return "MESSAGE_QUEUE_ERROR"
	case CodeStorageError:
		return "STORAGE_ERROR"
	case CodeDatabaseError:
		return "DATABASE_ERROR"
	case CodeDBQueryError:
		return "DB_QUERY_ERROR"

	default:
		return "UNKNOWN_CODE"
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// HTTPStatus — mapping from domain error codes to HTTP status codes
// ─────────────────────────────────────────────────────────────────────────────

// HTTPStatus returns the most appropriate HTTP status code for the given ErrorCode.
//
// Decision matrix:
//   - 200 OK              → CodeOK
//   - 400 Bad Request     → CodeInvalidParam, CodeParseError, CodeChunkTooLarge
//   - 401 Unauthorized    → CodeUnauthorized
//   - 403 Forbidden       → CodeForbidden
//   - 404 Not Found       → CodeNotFound, CodeSectionsNotFound, CodeNoHitsFound
//   - 409 Conflict        → CodeConflict, CodeFactConflict, CodeFactDuplicate, CodeUpdateConflict
//   - 413 Payload Too Large → CodePayloadTooLarge
//   - 429 Too Many Req.   → CodeRateLimit
//   - 499 Client Closed   → CodeCancelled
//   - 501 Not Implemented → CodeNotImplemented
//   - 503 Service Unavail → CodeDBConnectionError, CodeMessageQueueError, CodeSearchError, CodeProviderError, CodeStorageError
//   - 500 Internal Server → everything else
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeOK:
		return http.StatusOK

	case CodeInvalidParam,
		CodeParseError,
		CodeChunkTooLarge:
		return http.StatusBadRequest

	case CodeUnauthorized:
		return http.StatusUnauthorized

	case CodeForbidden:
		return http.StatusForbidden

	case CodeNotFound,
		CodeSectionsNotFound,
		CodeNoHitsFound:
		return http.StatusNotFound

	case CodeConflict,
		CodeFactConflict,
		CodeFactDuplicate,
		CodeUpdateConflict:
		return http.StatusConflict

	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge

	case CodeRateLimit:
		return http.StatusTooManyRequests

	case CodeCancelled:
		return 499 // nginx convention for client closed request; no net/http constant exists

	case CodeDBConnectionError,
		CodeMessageQueueError,
		CodeSearchError,
		CodeProviderError,
		CodeStorageError:
		return http.StatusServiceUnavailable

	case CodeDBQueryError:
		return http.StatusInternalServerError

	case CodeNotImplemented:
		return http.StatusNotImplemented

	default:
		// CodeUnknown, CodeInternal, CodeConfigError, CodeIOError,
		// CodeFingerprintMismatch, CodeGroundingFailed, CodeCacheError,
		// CodeDatabaseError, and all unrecognised codes.
		return http.StatusInternalServerError
	}
}
