package handlers

import (
	"net/http"

	apperrors "echobin/pkg/errors"
	"echobin/pkg/inspect"
	"echobin/pkg/logger"
	"echobin/pkg/utils"
)

func writeDocument(w http.ResponseWriter, r *http.Request, doc *inspect.Document) {
	if err := utils.JSONWrite(w, http.StatusOK, doc); err != nil {
		logger.Error("write_document_failed", "path", r.URL.Path, "error", err)
	}
}

// writeFailure maps err to its status code and wire name.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperrors.Kind(err)
	switch kind {
	case apperrors.KindBodyTooLarge:
		logger.Warn("body_too_large", "path", r.URL.Path, "remote", r.RemoteAddr)
		utils.JSONError(w, http.StatusRequestEntityTooLarge, kind)
	case apperrors.KindBodyDecode:
		utils.JSONError(w, http.StatusBadRequest, kind)
	case apperrors.KindAuthRejected:
		utils.JSONError(w, http.StatusUnauthorized, kind)
	default:
		logger.Warn("request_read_failed", "path", r.URL.Path, "error", err)
		utils.JSONError(w, http.StatusBadRequest, "bad request")
	}
}
