// Package assets loads bundled resources: fragment shader bodies,
// channel textures and cached album-art thumbnails.
package assets

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"

	"github.com/seliv/shaderviz/gfx"
)

// Store resolves resources below a root directory. Shader bodies live in
// root/shaders, bundled textures in root/textures and thumbnails in a
// user cache directory.
type Store struct {
	root     string
	thumbDir string
}

// New returns a store rooted at dir. thumbDir may be empty when album
// art is unused.
func New(dir, thumbDir string) *Store {
	return &Store{root: dir, thumbDir: thumbDir}
}

// ShaderSource reads a fragment body by file name.
func (s *Store) ShaderSource(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.root, "shaders", name))
	if err != nil {
		return "", errors.Wrapf(err, "failed to read shader %q", name)
	}
	return string(data), nil
}

// LoadImage decodes a texture. Absolute paths load as-is; bare names
// resolve against the bundled texture directory.
func (s *Store) LoadImage(name string) (*gfx.Image, error) {
	path := name
	if !filepath.IsAbs(name) {
		path = filepath.Join(s.root, "textures", name)
	}
	return decodeFile(path)
}

// Thumbnail resolves a cached album-art image. Cache layout follows the
// player's art cache: files bucket under the first hex digit of the
// identifier hash, png preferred over jpg.
func (s *Store) Thumbnail(id string) (*gfx.Image, error) {
	if s.thumbDir == "" {
		return nil, errors.New("no thumbnail cache configured")
	}

	key := thumbnailKey(id)
	for _, ext := range []string{".png", ".jpg"} {
		path := filepath.Join(s.thumbDir, key[:1], key+ext)
		img, err := decodeFile(path)
		if err == nil {
			return img, nil
		}
	}
	return nil, errors.Errorf("no thumbnail cached for %q", id)
}

// thumbnailKey derives the cache file stem for an identifier.
func thumbnailKey(id string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(id)))
	return hex.EncodeToString(sum[:])[:8]
}

// decodeFile reads and decodes an image, normalized to tightly packed
// RGBA the texture upload path expects.
func decodeFile(path string) (*gfx.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read image %q", path)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %q", path)
	}

	bounds := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)

	return &gfx.Image{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pix:    rgba.Pix,
	}, nil
}
