package mediahost

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cloudflare/cloudflare-go"
	"go.uber.org/zap"

	"github.com/bitmark-inc/artist-portfolio/log"
)

const CloudflareImageDeliverURL = "https://imagedelivery.net/%s/%s/public"

type CloudflareConfig struct {
	AccountID   string
	AccountHash string
	APIToken    string
	Folder      string
	Debug       bool

	// BaseURL overrides the cloudflare api endpoint
	BaseURL string
}

type Cloudflare struct {
	api         *cloudflare.API
	account     *cloudflare.ResourceContainer
	accountHash string
	folder      string
}

func NewCloudflare(c CloudflareConfig) (*Cloudflare, error) {
	opts := []cloudflare.Option{
		cloudflare.Debug(c.Debug),
		cloudflare.UsingLogger(log.CloudflareLogger()),
	}
	if c.BaseURL != "" {
		opts = append(opts, cloudflare.BaseURL(c.BaseURL))
	}

	api, err := cloudflare.NewWithAPIToken(c.APIToken, opts...)
	if err != nil {
		return nil, err
	}

	return &Cloudflare{
		api: api,
		account: &cloudflare.ResourceContainer{
			Level:      cloudflare.AccountRouteLevel,
			Identifier: c.AccountID,
			Type:       cloudflare.AccountType,
		},
		accountHash: c.AccountHash,
		folder:      c.Folder,
	}, nil
}

// Upload sends a local file to cloudflare images. The folder is kept in the
// image name and metadata since cloudflare images has no folders.
func (c *Cloudflare) Upload(ctx context.Context, path string, metadata Metadata) (Asset, error) {
	file, err := os.Open(path)
	if err != nil {
		return Asset{}, err
	}
	defer file.Close()

	meta := map[string]interface{}{"folder": c.folder}
	for k, v := range metadata {
		meta[k] = v
	}

	name := fmt.Sprintf("%s/%s", c.folder, file.Name())
	if filename, ok := metadata["filename"].(string); ok && filename != "" {
		name = fmt.Sprintf("%s/%s", c.folder, filename)
	}

	log.Debug("upload image to cloudflare", zap.String("name", name), log.SourceCloudflare)

	i, err := c.api.UploadImage(ctx, c.account, cloudflare.UploadImageParams{
		File:     file,
		Name:     name,
		Metadata: meta,
	})
	if err != nil {
		var requestErr *cloudflare.RequestError
		if errors.As(err, &requestErr) {
			log.Debug("caught cloudflare request error",
				zap.Any("codes", requestErr.ErrorCodes()),
				zap.Any("msg", requestErr.ErrorMessages()),
				log.SourceCloudflare)
		}
		return Asset{}, &Error{Provider: ProviderCloudflare, Op: "upload", Err: err}
	}

	return Asset{
		URL:      fmt.Sprintf(CloudflareImageDeliverURL, c.accountHash, i.ID),
		PublicID: i.ID,
	}, nil
}

func (c *Cloudflare) Destroy(ctx context.Context, publicID string) error {
	if err := c.api.DeleteImage(ctx, c.account, publicID); err != nil {
		var notFound *cloudflare.NotFoundError
		if errors.As(err, &notFound) {
			log.Warn("image already absent from cloudflare", zap.String("imageID", publicID), log.SourceCloudflare)
			return nil
		}
		return &Error{Provider: ProviderCloudflare, Op: "destroy", Err: err}
	}

	return nil
}
