package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/dharsanguruparan/PrintReady/internal/blobstore"
	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
	"github.com/dharsanguruparan/PrintReady/internal/model"
	"github.com/dharsanguruparan/PrintReady/internal/prepare"
	"github.com/dharsanguruparan/PrintReady/internal/repository"
	"github.com/dharsanguruparan/PrintReady/internal/signing"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	var req prepare.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, r, rerrors.WrapWithCode(err, rerrors.CodeValidation, "", "invalid json body"))
		return
	}
	res, err := s.preparer.Prepare(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{
		"orderId":      req.OrderID,
		"lineItemId":   req.LineItemID,
		"renderStatus": string(repository.StatusQueued),
		"taskId":       res.TaskID,
		"queue":        res.Queue,
		"source":       res.Payload.Source,
		"printSpec":    res.Payload.PrintSpec,
		"safeArea":     res.Payload.SafeArea,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	orderID, lineItemID := chi.URLParam(r, "orderId"), chi.URLParam(r, "lineItemId")
	item, err := s.docs.Get(r.Context(), repository.LineItems(orderID), lineItemID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	body := map[string]any{
		"orderId":         orderID,
		"lineItemId":      lineItemID,
		"renderStatus":    item["renderStatus"],
		"productionAsset": item["productionAsset"],
		"outputFiles":     item["outputFiles"],
		"renderError":     item["renderError"],
		"renderedAt":      item["renderedAt"],
	}
	if _, ok := item["renderReportPath"].(string); ok {
		q := s.signer.Query(signing.ReportResource(orderID, lineItemID), s.cfg.SignedURLTTL, s.now())
		body["reportUrl"] = "/renders/" + url.PathEscape(orderID) + "/" + url.PathEscape(lineItemID) + "/report?" + q.Encode()
	}
	body["downloadUrl"] = s.presignTIFF(r, item)
	respondJSON(w, http.StatusOK, body)
}

// presignTIFF returns a direct download URL for the raster artifact when the
// backend supports it.
func (s *Server) presignTIFF(r *http.Request, item map[string]any) any {
	presigner, ok := s.blobs.(blobstore.Presigner)
	if !ok {
		return nil
	}
	files, _ := item["outputFiles"].(map[string]any)
	ref, err := model.ParseStorageReference(files["tiff"])
	if err != nil {
		return nil
	}
	u, err := presigner.Presign(r.Context(), ref, s.cfg.SignedURLTTL)
	if err != nil {
		s.log.FromContext(r.Context()).Warn("presign tiff", slog.String("error", err.Error()))
		return nil
	}
	return u
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	orderID, lineItemID := chi.URLParam(r, "orderId"), chi.URLParam(r, "lineItemId")
	q := r.URL.Query()
	if !s.signer.Validate(signing.ReportResource(orderID, lineItemID), q.Get(signing.ParamExpires), q.Get(signing.ParamSignature), s.now()) {
		respondErr(w, http.StatusForbidden, "FORBIDDEN", "invalid or expired signature", nil)
		return
	}
	item, err := s.docs.Get(r.Context(), repository.LineItems(orderID), lineItemID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ref, err := model.ParseStorageReference(item["renderReportPath"])
	if err != nil {
		s.respondError(w, r, rerrors.NotFound("render report", orderID+"/"+lineItemID))
		return
	}
	data, err := s.blobs.Download(r.Context(), ref)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
