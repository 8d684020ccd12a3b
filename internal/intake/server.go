// Package intake serves the container codec and validator over HTTP.
// Uploaded assets are decoded, validated and kept in memory.
package intake

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/glbkit/internal/logger"
	"github.com/samcharles93/glbkit/pkg/glb"
	"github.com/samcharles93/glbkit/pkg/scene"
)

// MIMEGLB is the registered media type of binary glTF.
const MIMEGLB = "model/gltf-binary"

// Options configures a Server. Zero values select defaults.
type Options struct {
	// MaxUploadBytes bounds request bodies; <= 0 means 64 MiB.
	MaxUploadBytes int64
	// RejectInvalid refuses uploads and packs that fail validation.
	RejectInvalid bool
	Logger        logger.Logger
}

type Server struct {
	store  *AssetStore
	log    logger.Logger
	limit  int64
	reject bool
	clock  func() time.Time
}

func NewServer(store *AssetStore, opts Options) *Server {
	if store == nil {
		store = NewAssetStore()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	limit := opts.MaxUploadBytes
	if limit <= 0 {
		limit = 64 << 20
	}
	return &Server{
		store:  store,
		log:    log.With("component", "intake"),
		limit:  limit,
		reject: opts.RejectInvalid,
		clock:  time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/assets", s.handleCreateAsset)
	e.GET("/v1/assets", s.handleListAssets)
	e.GET("/v1/assets/:id", s.handleGetAsset)
	e.GET("/v1/assets/:id/descriptor", s.handleGetDescriptor)
	e.GET("/v1/assets/:id/content", s.handleGetContent)
	e.DELETE("/v1/assets/:id", s.handleDeleteAsset)

	e.POST("/v1/pack", s.handlePack)
	e.POST("/v1/validate", s.handleValidate)
	e.POST("/v1/inspect", s.handleInspect)
}

func (s *Server) handleCreateAsset(c *echo.Context) error {
	ct, err := glb.ReadContainer(c.Request().Body, s.limit)
	if err != nil {
		return s.fail(c, "upload rejected", err)
	}
	doc, bin, err := ct.Decode()
	if err != nil {
		return s.fail(c, "upload rejected", err)
	}

	issues := scene.ValidatePayload(doc, bin)
	if s.reject && len(issues) > 0 {
		s.log.Info("upload failed validation", "issues", len(issues))
		return writeRejected(c, issues)
	}

	a := &Asset{
		Name:      c.QueryParam("name"),
		CreatedAt: s.clock(),
		Container: ct,
		Document:  doc,
		Payload:   bin,
		Issues:    issues,
		Layout:    ct.Info(),
	}
	id := s.store.Put(a)
	s.log.Info("asset stored", "id", id, "bytes", a.Layout.Length, "issues", len(issues))

	return c.JSON(http.StatusCreated, CreateAssetResp{
		ID:      id,
		Issues:  nonNil(issues),
		Summary: summarize(a),
	})
}

func (s *Server) handleListAssets(c *echo.Context) error {
	assets := s.store.List()
	out := ListAssetsResp{Object: "list", Data: make([]AssetSummary, 0, len(assets))}
	for _, a := range assets {
		out.Data = append(out.Data, summarize(a))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetAsset(c *echo.Context) error {
	a, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "asset not found")
	}
	return c.JSON(http.StatusOK, summarize(a))
}

func (s *Server) handleGetDescriptor(c *echo.Context) error {
	a, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "asset not found")
	}
	js, err := scene.Marshal(a.Document)
	if err != nil {
		return s.fail(c, "descriptor encode failed", fmt.Errorf("%w: %w", glb.ErrDescriptorSerialization, err))
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, js)
}

func (s *Server) handleGetContent(c *echo.Context) error {
	a, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "asset not found")
	}
	var (
		data []byte
		err  error
	)
	if a.Container != nil {
		data, err = a.Container.Marshal()
	} else {
		data, err = glb.Encode(a.Document, a.Payload)
	}
	if err != nil {
		return s.fail(c, "container encode failed", err)
	}
	return c.Blob(http.StatusOK, MIMEGLB, data)
}

func (s *Server) handleDeleteAsset(c *echo.Context) error {
	id := c.Param("id")
	if !s.store.Delete(id) {
		return writeNotFound(c, "asset not found")
	}
	s.log.Info("asset deleted", "id", id)
	return c.JSON(http.StatusOK, DeleteAssetResp{ID: id, Deleted: true})
}

func (s *Server) handlePack(c *echo.Context) error {
	body, err := s.readBody(c)
	if err != nil {
		return writeErr(c, err)
	}
	req, err := decodeJSON[PackReq](bytes.NewReader(body))
	if err != nil {
		return writeErr(c, newInvalidRequest(err.Error()))
	}
	if len(req.Descriptor) == 0 {
		return writeErr(c, newInvalidRequest("descriptor is required"))
	}
	doc, err := scene.Unmarshal(req.Descriptor)
	if err != nil {
		return writeErr(c, fmt.Errorf("%w: %w", glb.ErrDescriptorParse, err))
	}
	if req.Validate || s.reject {
		if issues := scene.ValidatePayload(doc, req.Payload); len(issues) > 0 {
			return writeRejected(c, issues)
		}
	}
	data, err := glb.Encode(doc, req.Payload)
	if err != nil {
		return s.fail(c, "pack failed", err)
	}
	s.log.Debug("packed container", "bytes", len(data))
	return c.Blob(http.StatusOK, MIMEGLB, data)
}

func (s *Server) handleValidate(c *echo.Context) error {
	body, err := s.readBody(c)
	if err != nil {
		return writeErr(c, err)
	}
	doc, err := scene.Unmarshal(body)
	if err != nil {
		return writeErr(c, fmt.Errorf("%w: %w", glb.ErrDescriptorParse, err))
	}
	issues := scene.Validate(doc)
	return c.JSON(http.StatusOK, ValidateResp{Valid: len(issues) == 0, Issues: nonNil(issues)})
}

func (s *Server) handleInspect(c *echo.Context) error {
	ct, err := glb.ReadContainer(c.Request().Body, s.limit)
	if err != nil {
		return s.fail(c, "inspect failed", err)
	}
	out := InspectResp{
		Layout:          ct.Info(),
		DescriptorBytes: len(ct.Descriptor()),
		PayloadBytes:    len(ct.Binary()),
		UnknownChunks:   len(ct.Unknown()),
	}
	doc, bin, err := ct.Decode()
	if err != nil {
		return s.fail(c, "inspect failed", err)
	}
	out.Issues = nonNil(scene.ValidatePayload(doc, bin))
	return c.JSON(http.StatusOK, out)
}

// fail logs a codec failure and writes the mapped error response.
func (s *Server) fail(c *echo.Context, msg string, err error) error {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(msg, "error", err)
	} else {
		s.log.Debug(msg, "code", code, "error", err)
	}
	return writeErr(c, err)
}

// readBody reads at most the configured upload limit.
func (s *Server) readBody(c *echo.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, s.limit+1))
	if err != nil {
		return nil, newInvalidRequest(err.Error())
	}
	if int64(len(body)) > s.limit {
		return nil, fmt.Errorf("%w: request body exceeds %d bytes", ErrPayloadTooLarge, s.limit)
	}
	return body, nil
}

func writeRejected(c *echo.Context, issues []scene.Issue) error {
	return c.JSON(http.StatusUnprocessableEntity, RejectedResp{
		Error: ErrorBody{
			Message: fmt.Sprintf("descriptor has %d validation issue(s)", len(issues)),
			Type:    "invalid_request_error",
			Code:    "validation_failed",
		},
		Issues: issues,
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
