package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/rizkyab/dicerita/internal/client/models"
)

// RESTClient is the concrete Client over the DiCerita HTTP API.
type RESTClient struct {
	baseURL string
	http    *http.Client
	token   string
}

// NewRESTClient returns a Client for the given API base URL, e.g.
// "https://story-api.dicoding.dev/v1".
func NewRESTClient(baseURL string) *RESTClient {
	return &RESTClient{
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

func (c *RESTClient) SetToken(token string) {
	c.token = token
}

// Wire DTOs. Field names follow the backend's JSON contract.

type apiEnvelope struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type loginResponse struct {
	apiEnvelope
	LoginResult struct {
		Token  string `json:"token"`
		Name   string `json:"name"`
		UserID string `json:"userId"`
	} `json:"loginResult"`
}

type storyDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	PhotoURL    string   `json:"photoUrl"`
	CreatedAt   string   `json:"createdAt"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
}

type listResponse struct {
	apiEnvelope
	ListStory  []storyDTO `json:"listStory"`
	Page       int        `json:"page"`
	Size       int        `json:"size"`
	TotalPages int        `json:"totalPages"`
}

type detailResponse struct {
	apiEnvelope
	Story storyDTO `json:"story"`
}

func (d storyDTO) toModel() models.Story {
	createdAt, _ := time.Parse(time.RFC3339, d.CreatedAt)
	return models.Story{
		ID:          d.ID,
		Author:      d.Name,
		Description: d.Description,
		PhotoURL:    d.PhotoURL,
		CreatedAt:   createdAt.UTC(),
		Lat:         d.Lat,
		Lon:         d.Lon,
	}
}

func (c *RESTClient) Login(ctx context.Context, email, password string) (*models.Session, error) {
	body := map[string]string{"email": email, "password": password}
	var resp loginResponse
	if err := c.postJSON(ctx, "/login", body, &resp, false); err != nil {
		return nil, err
	}
	if resp.Error {
		return nil, fmt.Errorf("login: %s: %w", resp.Message, ErrUnauthorized)
	}
	session := &models.Session{
		Token:  resp.LoginResult.Token,
		Name:   resp.LoginResult.Name,
		UserID: resp.LoginResult.UserID,
		Email:  email,
	}
	c.token = session.Token
	return session, nil
}

func (c *RESTClient) Register(ctx context.Context, name, email, password string) error {
	body := map[string]string{"name": name, "email": email, "password": password}
	var resp apiEnvelope
	if err := c.postJSON(ctx, "/register", body, &resp, false); err != nil {
		return err
	}
	if resp.Error {
		return &NetworkError{Op: "register", Err: fmt.Errorf("%s", resp.Message)}
	}
	return nil
}

func (c *RESTClient) ListStories(ctx context.Context, page, size int) (*models.StoryPage, error) {
	path := fmt.Sprintf("/stories?page=%d&size=%d&location=1", page, size)
	var resp listResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}

	result := &models.StoryPage{
		Page:       resp.Page,
		Size:       resp.Size,
		TotalPages: resp.TotalPages,
	}
	if result.Page == 0 {
		result.Page = page
	}
	if result.Size == 0 {
		result.Size = size
	}
	result.Stories = make([]models.Story, 0, len(resp.ListStory))
	for _, d := range resp.ListStory {
		result.Stories = append(result.Stories, d.toModel())
	}
	return result, nil
}

func (c *RESTClient) GetStory(ctx context.Context, id string) (*models.Story, error) {
	var resp detailResponse
	if err := c.getJSON(ctx, "/stories/"+id, &resp); err != nil {
		return nil, err
	}
	if resp.Error {
		return nil, &NetworkError{Op: "get story", Err: fmt.Errorf("%s", resp.Message)}
	}
	story := resp.Story.toModel()
	return &story, nil
}

// CreateStory posts the story as multipart form data: description, photo,
// and the optional lat/lon pair.
func (c *RESTClient) CreateStory(ctx context.Context, description string, photo []byte, photoName string, lat, lon *float64) error {
	if c.token == "" {
		return ErrNoToken
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("description", description); err != nil {
		return fmt.Errorf("create story: %w", err)
	}
	if photoName == "" {
		photoName = "photo.jpg"
	}
	part, err := w.CreateFormFile("photo", photoName)
	if err != nil {
		return fmt.Errorf("create story: %w", err)
	}
	if _, err := part.Write(photo); err != nil {
		return fmt.Errorf("create story: %w", err)
	}
	if lat != nil && lon != nil {
		if err := w.WriteField("lat", strconv.FormatFloat(*lat, 'f', -1, 64)); err != nil {
			return fmt.Errorf("create story: %w", err)
		}
		if err := w.WriteField("lon", strconv.FormatFloat(*lon, 'f', -1, 64)); err != nil {
			return fmt.Errorf("create story: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("create story: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/stories", &buf)
	if err != nil {
		return fmt.Errorf("create story: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req, "create story", nil)
}

func (c *RESTClient) SubscribePush(ctx context.Context, sub PushSubscription) error {
	var resp apiEnvelope
	return c.postJSON(ctx, "/notifications/subscribe", sub, &resp, true)
}

func (c *RESTClient) UnsubscribePush(ctx context.Context, endpoint string) error {
	body, err := json.Marshal(map[string]string{"endpoint": endpoint})
	if err != nil {
		return fmt.Errorf("unsubscribe push: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/notifications/subscribe", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("unsubscribe push: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	return c.do(req, "unsubscribe push", nil)
}

// Ping probes reachability with a cheap unauthenticated request. Any HTTP
// response, including an error status, counts as reachable.
func (c *RESTClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stories?page=1&size=1", nil)
	if err != nil {
		return &NetworkError{Op: "ping", Err: err}
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: "ping", Err: err}
	}
	_ = resp.Body.Close()
	return nil
}

func (c *RESTClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *RESTClient) postJSON(ctx context.Context, path string, body any, out any, authorized bool) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authorized {
		if c.token == "" {
			return ErrNoToken
		}
		c.authorize(req)
	}
	return c.do(req, "post "+path, out)
}

func (c *RESTClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	c.authorize(req)
	return c.do(req, "get "+path, out)
}

// do executes the request, maps transport failures and non-2xx statuses to
// NetworkError (401 additionally matches ErrUnauthorized), and decodes the
// JSON body into out when provided.
func (c *RESTClient) do(req *http.Request, op string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: ErrUnauthorized}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &NetworkError{Op: op, StatusCode: resp.StatusCode}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
