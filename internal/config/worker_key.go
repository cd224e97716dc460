package config

type WorkerKeyStruct struct {
	PersistAuditQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAuditQueue: "persist_session_audit_queue",
}
