package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/duofeed/internal/domain/model"
)

// fixture is a listing snapshot: either a bare list of posts or an object
// with a posts key.
type fixture struct {
	Posts []model.Post `json:"posts" yaml:"posts"`
}

// loadFixture reads posts from a .json, .yaml or .yml file.
func loadFixture(path string) ([]model.Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var posts []model.Post
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		posts, err = decodeFixture(data, json.Unmarshal)
	case ".yaml", ".yml":
		posts, err = decodeFixture(data, yaml.Unmarshal)
	default:
		return nil, fmt.Errorf("fixture %s: unsupported extension", path)
	}
	if err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}

	for i, p := range posts {
		if p.ID == "" {
			return nil, fmt.Errorf("fixture %s: post %d has no id", path, i)
		}
	}
	return posts, nil
}

func decodeFixture(data []byte, unmarshal func([]byte, any) error) ([]model.Post, error) {
	var list []model.Post
	if err := unmarshal(data, &list); err == nil {
		return list, nil
	}
	var doc fixture
	if err := unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Posts, nil
}
