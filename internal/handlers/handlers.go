package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/ecosnap-api/internal/model"
	"github.com/Brownie44l1/ecosnap-api/internal/store"
	"github.com/Brownie44l1/ecosnap-api/internal/telemetry"
)

const (
	msgNoFilePart      = "No file part"
	msgNoSelectedFile  = "No selected file"
	msgNoFileOrURL     = "No file or URL provided"
	msgFetchFailed     = "Failed to fetch file from URL"
	msgRequestTooLarge = "Request body too large"
)

type Predictor interface {
	PredictImage(data []byte) (*model.PredictionResult, error)
}

type ImageUploader interface {
	UploadImage(ctx context.Context, fileName string, data []byte) (string, error)
}

// Deps are the collaborators shared by all requests. Uploader and Store may
// be nil, which disables that step.
type Deps struct {
	Predictor  Predictor
	Uploader   ImageUploader
	Store      store.PredictionStore
	HTTPClient *http.Client
	Telemetry  *telemetry.Telemetry
	Logger     logrus.FieldLogger
}

type Handler struct {
	predictor Predictor
	uploader  ImageUploader
	store     store.PredictionStore
	client    *http.Client
	telemetry *telemetry.Telemetry
	logger    logrus.FieldLogger
}

func NewHandler(d Deps) *Handler {
	h := &Handler{
		predictor: d.Predictor,
		uploader:  d.Uploader,
		store:     d.Store,
		client:    d.HTTPClient,
		telemetry: d.Telemetry,
		logger:    d.Logger,
	}
	if h.client == nil {
		h.client = http.DefaultClient
	}
	if h.telemetry == nil {
		h.telemetry = telemetry.New()
	}
	if h.logger == nil {
		h.logger = logrus.StandardLogger()
	}
	return h
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, model.ServiceInfo())
}

func (h *Handler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.telemetry.Snapshot())
}

// PredictFile is the upload-only variant: it classifies the multipart "file"
// part and neither stores the image nor persists the result.
func (h *Handler) PredictFile(c *gin.Context) {
	data, _, err := readFormFile(c, "file")
	switch {
	case errors.Is(err, errNoFile):
		h.clientError(c, http.StatusBadRequest, msgNoFilePart)
		return
	case errors.Is(err, errEmptyFileName):
		h.clientError(c, http.StatusBadRequest, msgNoSelectedFile)
		return
	case err != nil:
		h.uploadError(c, err)
		return
	}

	result, err := h.classify(data)
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Predict accepts a multipart "file" or a form "url". Uploaded files are
// copied to object storage; URL inputs are referenced as-is. The result is
// persisted before it is returned. Storage failures never fail the request.
func (h *Handler) Predict(c *gin.Context) {
	data, fileName, err := readFormFile(c, "file")
	hasFile := err == nil
	if err != nil && !errors.Is(err, errNoFile) && !errors.Is(err, errEmptyFileName) {
		h.uploadError(c, err)
		return
	}

	imageURL := c.PostForm("url")
	if !hasFile && imageURL == "" {
		h.clientError(c, http.StatusBadRequest, msgNoFileOrURL)
		return
	}

	ctx := c.Request.Context()
	if !hasFile {
		data, err = h.fetchImage(ctx, imageURL)
		if errors.Is(err, errFetchFailed) {
			h.logger.WithError(err).WithField("url", imageURL).Warn("image fetch rejected")
			h.clientError(c, http.StatusBadRequest, msgFetchFailed)
			return
		}
		if err != nil {
			h.serverError(c, err)
			return
		}
	}

	result, err := h.classify(data)
	if err != nil {
		h.serverError(c, err)
		return
	}

	// Upload and persistence outlive a client that has already gone away.
	sideCtx := context.WithoutCancel(ctx)
	if hasFile {
		if publicURL := h.uploadImage(sideCtx, fileName, data); publicURL != "" {
			result.ImageURL = publicURL
		}
	} else {
		result.ImageURL = imageURL
	}

	h.savePrediction(sideCtx, *result)
	c.JSON(http.StatusOK, result)
}

func (h *Handler) classify(data []byte) (*model.PredictionResult, error) {
	start := time.Now()
	result, err := h.predictor.PredictImage(data)
	if err != nil {
		return nil, err
	}
	h.telemetry.Prediction(result.Label, time.Since(start))
	h.logger.WithFields(logrus.Fields{
		"label":      result.Label,
		"confidence": result.Confidence,
	}).Debug("image classified")
	return result, nil
}

func (h *Handler) uploadImage(ctx context.Context, fileName string, data []byte) string {
	if h.uploader == nil {
		return ""
	}
	publicURL, err := h.uploader.UploadImage(ctx, fileName, data)
	if err != nil {
		h.telemetry.UploadFailure()
		h.logger.WithError(err).WithField("file", fileName).Warn("image upload failed")
		return ""
	}
	h.logger.WithField("url", publicURL).Info("image uploaded")
	return publicURL
}

func (h *Handler) savePrediction(ctx context.Context, result model.PredictionResult) {
	if h.store == nil {
		return
	}
	if err := h.store.SavePrediction(ctx, result); err != nil {
		h.telemetry.PersistFailure()
		h.logger.WithError(err).Warn("prediction not persisted")
		return
	}
	h.logger.WithField("label", result.Label).Debug("prediction persisted")
}

func (h *Handler) clientError(c *gin.Context, status int, msg string) {
	h.telemetry.ClientError()
	c.JSON(status, gin.H{"error": msg})
}

func (h *Handler) serverError(c *gin.Context, err error) {
	h.telemetry.ServerError()
	h.logger.WithError(err).Error("prediction failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// uploadError reports a multipart body that could not be parsed.
func (h *Handler) uploadError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.clientError(c, http.StatusRequestEntityTooLarge, msgRequestTooLarge)
		return
	}
	h.clientError(c, http.StatusBadRequest, fmt.Sprintf("invalid upload: %v", err))
}

var (
	errNoFile        = errors.New("no file part")
	errEmptyFileName = errors.New("file part has no file name")
)

// readFormFile returns the bytes and client file name of a multipart part.
// A part sent with an empty file name is parsed by net/http as a plain form
// value, which is reported as errEmptyFileName.
func readFormFile(c *gin.Context, field string) ([]byte, string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			if form := c.Request.MultipartForm; form != nil {
				if _, ok := form.Value[field]; ok {
					return nil, "", errEmptyFileName
				}
			}
			return nil, "", errNoFile
		}
		return nil, "", err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("read uploaded file: %w", err)
	}
	return data, fh.Filename, nil
}
