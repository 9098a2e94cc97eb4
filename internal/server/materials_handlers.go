package server

import (
	"errors"
	"net/http"

	"github.com/diredev/campushub/internal/materials"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type materialPayload struct {
	MaterialID   string `json:"material_id"`
	Title        string `json:"title"`
	Course       string `json:"course"`
	Kind         string `json:"kind"`
	SizeLabel    string `json:"size_label"`
	UploaderID   string `json:"uploader_id"`
	UploaderName string `json:"uploader_name"`
	Downloads    int64   `json:"downloads"`
	Rating       float64 `json:"rating"`
	RatingCount  int64   `json:"rating_count"`
	CreatedAtS   int64   `json:"created_at_s"`
}

func materialToPayload(material materials.Material) materialPayload {
	return materialPayload{
		MaterialID:   material.MaterialID,
		Title:        material.Title,
		Course:       material.Course,
		Kind:         string(material.Kind),
		SizeLabel:    material.SizeLabel,
		UploaderID:   material.UploaderID,
		UploaderName: material.UploaderName,
		Downloads:    material.Downloads,
		Rating:       material.Rating(),
		RatingCount:  material.RatingCount,
		CreatedAtS:   material.CreatedAtSeconds,
	}
}

func (h *httpHandler) handleListMaterials(c *gin.Context) {
	if _, ok := h.requireSession(c); !ok {
		return
	}
	filter := materials.ListFilter{Search: c.Query("search")}
	if rawKind := c.Query("kind"); rawKind != "" {
		kind, err := materials.ParseKind(rawKind)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_kind"})
			return
		}
		filter.Kind = kind
	}
	listed, err := h.materials.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("material listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}
	payload := make([]materialPayload, 0, len(listed))
	for _, material := range listed {
		payload = append(payload, materialToPayload(material))
	}
	c.JSON(http.StatusOK, gin.H{"materials": payload})
}

type shareMaterialPayload struct {
	Title     string `json:"title"`
	Course    string `json:"course"`
	Kind      string `json:"kind"`
	SizeLabel string `json:"size_label"`
}

func (h *httpHandler) handleShareMaterial(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	var request shareMaterialPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	kind, err := materials.ParseKind(request.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_kind"})
		return
	}
	material, err := h.materials.Share(c.Request.Context(), session.UserID, session.DisplayName, materials.Draft{
		Title:     request.Title,
		Course:    request.Course,
		Kind:      kind,
		SizeLabel: request.SizeLabel,
	})
	if err != nil {
		if errors.Is(err, materials.ErrEmptyTitle) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty_title"})
			return
		}
		h.logger.Error("material share failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "share_failed"})
		return
	}
	c.JSON(http.StatusCreated, materialToPayload(material))
}

type rateMaterialPayload struct {
	Stars int `json:"stars"`
}

func (h *httpHandler) handleRateMaterial(c *gin.Context) {
	if _, ok := h.requireSession(c); !ok {
		return
	}
	materialID, err := materials.NewMaterialID(c.Param("materialID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_material_id"})
		return
	}
	var request rateMaterialPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.materials.Rate(c.Request.Context(), materialID, request.Stars); err != nil {
		switch {
		case errors.Is(err, materials.ErrInvalidRating):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_rating"})
		case errors.Is(err, materials.ErrMaterialNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "material_not_found"})
		default:
			h.logger.Error("material rating failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "rate_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"rated": true})
}

func (h *httpHandler) handleRecordDownload(c *gin.Context) {
	if _, ok := h.requireSession(c); !ok {
		return
	}
	materialID, err := materials.NewMaterialID(c.Param("materialID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_material_id"})
		return
	}
	if err := h.materials.RecordDownload(c.Request.Context(), materialID); err != nil {
		if errors.Is(err, materials.ErrMaterialNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "material_not_found"})
			return
		}
		h.logger.Error("download record failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "download_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": true})
}
