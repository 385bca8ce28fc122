package enum

// ── Group A: State machines ──

// Order lifecycle. REJECTED and PERSISTED are terminal.
const (
	OrderStateRequested = "REQUESTED"
	OrderStateResolving = "RESOLVING"
	OrderStateResolved  = "RESOLVED"
	OrderStatePersisted = "PERSISTED"
	OrderStateRejected  = "REJECTED"
)

// ── Group B: Error kinds surfaced to the conversational layer ──

const (
	ErrorKindValidation  = "VALIDATION"
	ErrorKindNotFound    = "NOT_FOUND"
	ErrorKindOutOfRange  = "OUT_OF_RANGE"
	ErrorKindPersistence = "PERSISTENCE"
)

// ── Group C: Configurable labels ──

const (
	LedgerBackendFile     = "file"
	LedgerBackendSQLite   = "sqlite"
	LedgerBackendPostgres = "postgres"
)

const (
	AgentRoleAgent = "AGENT"
	AgentRoleAdmin = "ADMIN"
)

// Catalog sections of the sectioned catalog file.
const (
	SectionFood    = "food"
	SectionGrocery = "grocery"
)

// Websocket event types.
const (
	EventOrderCommitted = "order.committed"
)
