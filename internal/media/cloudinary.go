package media

import (
	"context"
	"fmt"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Kind selects the transformation applied to an uploaded image.
type Kind int

const (
	KindAvatar Kind = iota
	KindProfileCover
	KindStoryCover
)

func (k Kind) transformation() string {
	switch k {
	case KindAvatar:
		return "w_250,h_250,c_scale,q_35,f_auto"
	case KindProfileCover:
		return "h_450,c_scale,q_auto,f_auto"
	case KindStoryCover:
		return "w_300,h_400,c_fill,q_auto,f_auto"
	default:
		return ""
	}
}

// Gateway is the image host. Upload accepts anything the underlying SDK
// accepts as a source: an io.Reader, a local path or a remote URL.
type Gateway interface {
	Upload(ctx context.Context, source any, kind Kind) (models.Image, error)
	Destroy(ctx context.Context, publicID string) error
}

// Cloudinary implements Gateway against the Cloudinary upload API.
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinary(cloudName, apiKey, apiSecret string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, source any, kind Kind) (models.Image, error) {
	res, err := c.cld.Upload.Upload(ctx, source, uploader.UploadParams{
		Transformation: kind.transformation(),
	})
	if err != nil {
		observability.MediaGatewayErrors.WithLabelValues("upload").Inc()
		return models.Image{}, fmt.Errorf("upload image: %w", err)
	}
	return models.Image{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

func (c *Cloudinary) Destroy(ctx context.Context, publicID string) error {
	_, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:   publicID,
		Invalidate: api.Bool(true),
	})
	if err != nil {
		observability.MediaGatewayErrors.WithLabelValues("destroy").Inc()
		return fmt.Errorf("destroy image: %w", err)
	}
	return nil
}
