package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	portfolio "github.com/bitmark-inc/artist-portfolio"
	"github.com/bitmark-inc/artist-portfolio/log"
	"github.com/bitmark-inc/artist-portfolio/mediahost"
	"github.com/bitmark-inc/artist-portfolio/staging"
	"github.com/bitmark-inc/artist-portfolio/traceutils"
)

// UploadImage stages the `image` form file, forwards it to the media host and
// records the hosted asset
func (s *Server) UploadImage(c *gin.Context) {
	traceutils.SetHandlerTag(c, "UploadImage")
	ctx := c.Request.Context()

	header, err := c.FormFile("image")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "No file uploaded", err)
		return
	}
	name := portfolio.ImageName(c.PostForm("name"))

	var image portfolio.ImageRecord
	err = s.stager.With(header, func(f *staging.File) error {
		if !f.IsImage() {
			log.Warn("uploaded file is not an image", zap.String("mimeType", f.MimeType), log.SourceHTTP)
		}

		asset, err := s.mediaHost.Upload(ctx, f.Path, mediahost.Metadata{
			"filename":  f.Filename,
			"mime_type": f.MimeType,
		})
		if err != nil {
			return err
		}

		image, err = s.imageStore.CreateImage(ctx, portfolio.NewImage{
			Name:     name,
			URL:      asset.URL,
			PublicID: asset.PublicID,
		})
		if err != nil {
			log.Warn("hosted asset left without a record",
				zap.String("publicID", asset.PublicID), zap.Error(err), log.SourceHTTP)
			return err
		}

		return nil
	})
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Image upload failed", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Image uploaded successfully",
		"id":        image.ID,
		"name":      image.Name,
		"url":       image.URL,
		"public_id": image.PublicID,
	})
}

// ListImages returns every image record, newest first
func (s *Server) ListImages(c *gin.Context) {
	traceutils.SetHandlerTag(c, "ListImages")

	records, err := s.imageStore.ListImages(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Fail to list images", err)
		return
	}

	images := make([]portfolio.ImageSummary, 0, len(records))
	for _, r := range records {
		images = append(images, r.Summary())
	}

	c.JSON(http.StatusOK, gin.H{
		"images": images,
	})
}

type renameRequest struct {
	Name json.RawMessage `json:"name"`
}

var errInvalidName = errors.New("name must be a string, number or boolean")

// imageName coerces a scalar JSON name to its string form. A missing or null
// name yields nil.
func imageName(raw json.RawMessage) (*string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}

	var name string
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		name = v
	case float64:
		name = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		name = strconv.FormatBool(v)
	default:
		return nil, errInvalidName
	}

	return &name, nil
}

// RenameImage updates the display name of an image. An unknown id yields a null image.
func (s *Server) RenameImage(c *gin.Context) {
	traceutils.SetHandlerTag(c, "RenameImage")
	ctx := c.Request.Context()
	id := c.Param("id")

	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, http.StatusBadRequest, "Invalid parameters", err)
		return
	}

	name, err := imageName(req.Name)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid parameters", err)
		return
	}

	var image *portfolio.ImageRecord
	if name == nil {
		r, err := s.imageStore.GetImage(ctx, id)
		switch {
		case err == nil:
			image = &r
		case !errors.Is(err, portfolio.ErrImageNotFound):
			abortWithError(c, http.StatusInternalServerError, "Fail to update image", err)
			return
		}
	} else {
		r, err := s.imageStore.RenameImage(ctx, id, *name)
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, "Fail to update image", err)
			return
		}
		image = r
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Name updated",
		"image":   image,
	})
}

// DeleteImage removes the hosted asset and then its record
func (s *Server) DeleteImage(c *gin.Context) {
	traceutils.SetHandlerTag(c, "DeleteImage")
	ctx := c.Request.Context()
	id := c.Param("id")

	image, err := s.imageStore.GetImage(ctx, id)
	if err != nil {
		if errors.Is(err, portfolio.ErrImageNotFound) {
			abortWithError(c, http.StatusNotFound, "Image not found", err)
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Image deletion failed", err)
		return
	}

	if err := s.mediaHost.Destroy(ctx, image.PublicID); err != nil {
		abortWithError(c, http.StatusInternalServerError, "Image deletion failed", err)
		return
	}

	if err := s.imageStore.DeleteImage(ctx, id); err != nil {
		// a concurrent delete already removed the record
		if !errors.Is(err, portfolio.ErrImageNotFound) {
			log.Warn("hosted asset destroyed but record kept",
				zap.String("id", id), zap.String("publicID", image.PublicID), log.SourceHTTP)
			abortWithError(c, http.StatusInternalServerError, "Image deletion failed", err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Image deleted",
	})
}
