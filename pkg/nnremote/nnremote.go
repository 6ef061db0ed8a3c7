package nnremote

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/www"
	"github.com/gardencam/gardencam/pkg/nn"
)

// Package nnremote implements nn.ObjectDetector on top of a remote inference
// service. The service owns the model weights, image decoding and resizing;
// we just ship it image bytes and get detections back.
//
// API:
//   GET  /api/model/config                         -> nn.ModelConfig
//   POST /api/detect?floor=<float>&imgsz=<pixels>  -> detectResponse (body = raw image bytes)

type Client struct {
	log       logs.Log
	baseUrl   string
	imageSize int
	config    nn.ModelConfig
}

type detectResponse struct {
	Detections []nn.ObjectDetection `json:"detections"`
}

// NewClient connects to the inference service at baseUrl and fetches the model
// config. An unreachable service is a hard error: the caller must not start a
// triage run against a model it cannot talk to.
// imageSize is the resize target the service should use for inference
// (0 = service default).
func NewClient(log logs.Log, baseUrl string, imageSize int) (*Client, error) {
	baseUrl = strings.TrimSuffix(baseUrl, "/")
	c := &Client{
		log:       log,
		baseUrl:   baseUrl,
		imageSize: imageSize,
	}
	req, err := http.NewRequest("GET", baseUrl+"/api/model/config", nil)
	if err != nil {
		return nil, err
	}
	if err := www.FetchJSON(req, &c.config); err != nil {
		return nil, fmt.Errorf("Failed to fetch model config from %v: %w", baseUrl, err)
	}
	if len(c.config.Classes) == 0 {
		return nil, fmt.Errorf("Model at %v reports no classes", baseUrl)
	}
	log.Infof("Connected to model '%v' (%vx%v, %v classes) at %v",
		c.config.Architecture, c.config.Width, c.config.Height, len(c.config.Classes), baseUrl)
	return c, nil
}

func (c *Client) Close() {
}

func (c *Client) Config() *nn.ModelConfig {
	return &c.config
}

func (c *Client) DetectObjects(imagePath string, confidenceFloor float32) ([]nn.ObjectDetection, error) {
	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%v/api/detect?floor=%v", c.baseUrl, confidenceFloor)
	if c.imageSize > 0 {
		url += fmt.Sprintf("&imgsz=%v", c.imageSize)
	}
	req, err := http.NewRequest("POST", url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp := detectResponse{}
	if err := www.FetchJSON(req, &resp); err != nil {
		return nil, fmt.Errorf("Inference failed on %v: %w", imagePath, err)
	}
	return resp.Detections, nil
}
