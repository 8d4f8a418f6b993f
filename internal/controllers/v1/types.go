package v1

import (
	"github.com/flowledger/backend/internal/importer"
	fl_uuid "github.com/flowledger/backend/internal/uuid"
)

type URIID struct {
	ID fl_uuid.UUID `uri:"id" binding:"required" format:"UUID"` // ID of the resource
}

type URISession struct {
	URIID
	SessionID fl_uuid.UUID `uri:"sessionId" binding:"required" format:"UUID"` // ID of the staging session
}

type URIJob struct {
	URIID
	JobID fl_uuid.UUID `uri:"jobId" binding:"required" format:"UUID"` // ID of the import job
}

// engine is the import pipeline the controllers delegate to. It is set once
// at startup via SetEngine.
var engine *importer.Engine

func SetEngine(e *importer.Engine) {
	engine = e
}
