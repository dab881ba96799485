package cloudinary

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// Client uploads and removes images.
type Client interface {
	UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (url, thumbnailURL string, err error)
	Delete(ctx context.Context, folder, publicID string) error
}

// Optimized image params for fast frontend loading
const (
	ImageWidth = 400
	ThumbWidth = 96
)

const imageEager = "q_auto,f_auto,w_400,h_400,c_fill,g_face"

var (
	eagerAsyncFalse = false
	overwriteTrue   = true
)

// BuildOptimizedImageURL returns a Cloudinary URL with transformations for optimized delivery.
func BuildOptimizedImageURL(cloudName, publicID string, width int) string {
	if width <= 0 {
		width = ImageWidth
	}
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/q_auto,f_auto,w_%d,c_fill/%s",
		cloudName, width, publicID)
}

type clientImpl struct {
	cloudName string
	uploader  *uploader.API
}

// UploadImage uploads an image under folder/publicID, replacing any previous version.
func (c *clientImpl) UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (url, thumbnailURL string, err error) {
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:     folder,
		PublicID:   publicID,
		Overwrite:  &overwriteTrue,
		Eager:      imageEager,
		EagerAsync: &eagerAsyncFalse,
	})
	if err != nil {
		return "", "", err
	}
	if result.Error.Message != "" {
		return "", "", fmt.Errorf("cloudinary: %s", result.Error.Message)
	}
	url = result.SecureURL
	thumbnailURL = BuildOptimizedImageURL(c.cloudName, result.PublicID, ThumbWidth)
	return url, thumbnailURL, nil
}

func (c *clientImpl) Delete(ctx context.Context, folder, publicID string) error {
	res, err := c.uploader.Destroy(ctx, uploader.DestroyParams{PublicID: folder + "/" + publicID})
	if err != nil {
		return err
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary: %s", res.Error.Message)
	}
	return nil
}

// NewClientFromParams builds a Client from Cloudinary cloud name, API key, and secret.
func NewClientFromParams(cloudName, apiKey, apiSecret string) (Client, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &clientImpl{
		cloudName: cloudName,
		uploader:  up,
	}, nil
}
