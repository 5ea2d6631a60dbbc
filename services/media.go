package services

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nfnt/resize"
)

var (
	// ErrExists is returned when an upload would overwrite a stored object.
	ErrExists = errors.New("media: object already exists")
	// ErrBadImage is returned when the payload is not a decodable image.
	ErrBadImage = errors.New("media: payload is not a valid image")
)

const thumbWidth = 320

// MediaStore keeps chat and bet images on disk under Root and serves them
// back via BaseURL + /media/ + key. Keys are timestamp-salted so uploads
// never collide; an existing key is refused, never overwritten.
type MediaStore struct {
	Root    string
	BaseURL string

	now func() time.Time
}

// NewMediaStore creates the root directory if needed.
func NewMediaStore(root, baseURL string) (*MediaStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return &MediaStore{Root: root, BaseURL: baseURL, now: time.Now}, nil
}

// SaveChatImage stores an image for a chat under {chatID}/{senderID}-{unixms}.jpg
// and returns its public URL. A thumbnail is written next to it.
func (m *MediaStore) SaveChatImage(chatID, senderID string, r io.Reader) (string, error) {
	key := fmt.Sprintf("%s/%s-%d.jpg", chatID, senderID, m.now().UnixMilli())
	return m.save(key, r)
}

// SaveBetImage stores a bet feed image under bets/{betID}.jpg.
func (m *MediaStore) SaveBetImage(betID string, r io.Reader) (string, error) {
	return m.save(fmt.Sprintf("bets/%s.jpg", betID), r)
}

// SaveAvatar stores a profile picture under avatars/{userID}-{unixms}.jpg.
func (m *MediaStore) SaveAvatar(userID string, r io.Reader) (string, error) {
	key := fmt.Sprintf("avatars/%s-%d.jpg", userID, m.now().UnixMilli())
	return m.save(key, r)
}

// PublicURL returns the retrieval address for a stored key.
func (m *MediaStore) PublicURL(key string) string {
	return m.BaseURL + "/media/" + key
}

func (m *MediaStore) save(key string, r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", ErrBadImage
	}

	path := filepath.Join(m.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}

	// O_EXCL enforces the no-overwrite contract.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", ErrExists
		}
		return "", fmt.Errorf("failed to create media file: %w", err)
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close media file: %w", err)
	}

	if err := m.writeThumb(path, img); err != nil {
		// The original is stored, a missing thumbnail is not fatal.
		return m.PublicURL(key), nil
	}
	return m.PublicURL(key), nil
}

func (m *MediaStore) writeThumb(path string, img image.Image) error {
	thumb := resize.Thumbnail(thumbWidth, thumbWidth, img, resize.Lanczos3)
	dir, file := filepath.Split(path)
	f, err := os.Create(filepath.Join(dir, "thumb_"+file))
	if err != nil {
		return err
	}
	defer f.Close()
	return jpeg.Encode(f, thumb, &jpeg.Options{Quality: 80})
}
