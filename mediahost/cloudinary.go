package mediahost

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
	"go.uber.org/zap"

	"github.com/bitmark-inc/artist-portfolio/log"
)

const cloudinaryNotFound = "not found"

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string

	// UploadPrefix overrides the upload api endpoint
	UploadPrefix string
}

type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinary(c CloudinaryConfig) (*Cloudinary, error) {
	conf, err := config.NewFromParams(c.CloudName, c.APIKey, c.APISecret)
	if err != nil {
		return nil, err
	}
	if c.UploadPrefix != "" {
		conf.API.UploadPrefix = c.UploadPrefix
	}

	cld, err := cloudinary.NewFromConfiguration(*conf)
	if err != nil {
		return nil, err
	}

	return &Cloudinary{
		cld:    cld,
		folder: c.Folder,
	}, nil
}

// cloudinaryContext converts metadata into the contextual key/value pairs
// stored with an asset
func cloudinaryContext(metadata Metadata) api.CldAPIMap {
	if len(metadata) == 0 {
		return nil
	}

	m := make(api.CldAPIMap, len(metadata))
	for k, v := range metadata {
		m[k] = fmt.Sprint(v)
	}
	return m
}

func (c *Cloudinary) Upload(ctx context.Context, path string, metadata Metadata) (Asset, error) {
	log.Debug("upload image to cloudinary", zap.String("folder", c.folder), zap.Any("metadata", metadata), log.SourceCloudinary)

	r, err := c.cld.Upload.Upload(ctx, path, uploader.UploadParams{
		Folder:  c.folder,
		Context: cloudinaryContext(metadata),
	})
	if err != nil {
		return Asset{}, &Error{Provider: ProviderCloudinary, Op: "upload", Err: err}
	}
	if r.Error.Message != "" {
		return Asset{}, &Error{Provider: ProviderCloudinary, Op: "upload", Err: errors.New(r.Error.Message)}
	}

	return Asset{
		URL:      r.SecureURL,
		PublicID: r.PublicID,
	}, nil
}

func (c *Cloudinary) Destroy(ctx context.Context, publicID string) error {
	r, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID: publicID,
	})
	if err != nil {
		return &Error{Provider: ProviderCloudinary, Op: "destroy", Err: err}
	}
	if r.Error.Message != "" {
		return &Error{Provider: ProviderCloudinary, Op: "destroy", Err: errors.New(r.Error.Message)}
	}

	if r.Result == cloudinaryNotFound {
		log.Warn("image already absent from cloudinary", zap.String("publicID", publicID), log.SourceCloudinary)
	}

	return nil
}
