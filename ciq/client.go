// Package ciq talks to the Connect IQ store and the unit software update
// feed. The endpoints are the ones the official desktop client uses; a
// throwaway account's session cookie is enough for the authenticated
// ones.
package ciq

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default endpoint bases.
const (
	defaultAppsBase     = "https://apps.garmin.com"
	defaultServicesBase = "https://services.garmin.com"
	defaultUpdatesBase  = "https://omt.garmin.com"
)

// Catalog errors.
var (
	// ErrInvalidStoreURL indicates a store URL without an app identifier.
	ErrInvalidStoreURL = errors.New("store URL carries no app id")

	// ErrSizeMismatch indicates a download whose length differs from the
	// feed's declared size.
	ErrSizeMismatch = errors.New("download size mismatch")

	// ErrDigestMismatch indicates a download whose MD5 differs from the
	// feed's declared digest.
	ErrDigestMismatch = errors.New("download digest mismatch")

	// ErrSessionRequired indicates an authenticated endpoint was called
	// without a session token.
	ErrSessionRequired = errors.New("session token required")
)

// APIError reports a non-2xx response from a catalog endpoint.
type APIError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Endpoint, e.Status, e.Body)
}

// Client is a Connect IQ catalog client. The zero value is not usable;
// construct with NewClient.
type Client struct {
	http         *http.Client
	sessionToken string
	appsBase     string
	servicesBase string
	updatesBase  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithSessionToken sets the apps.garmin.com session cookie value used on
// authenticated endpoints. Any account works, even a junk one.
func WithSessionToken(token string) ClientOption {
	return func(c *Client) { c.sessionToken = token }
}

// WithBaseURLs overrides the endpoint bases. Used by tests; empty strings
// keep the defaults.
func WithBaseURLs(apps, services, updates string) ClientOption {
	return func(c *Client) {
		if apps != "" {
			c.appsBase = apps
		}
		if services != "" {
			c.servicesBase = services
		}
		if updates != "" {
			c.updatesBase = updates
		}
	}
}

// NewClient returns a catalog client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:         &http.Client{Timeout: 30 * time.Second},
		appsBase:     defaultAppsBase,
		servicesBase: defaultServicesBase,
		updatesBase:  defaultUpdatesBase,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AppIDFromURL extracts the application id from a store URL like
// https://apps.garmin.com/en-US/apps/<uuid>.
func AppIDFromURL(storeURL string) (uuid.UUID, error) {
	_, after, found := strings.Cut(storeURL, "/apps/")
	if !found {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrInvalidStoreURL, storeURL)
	}
	idPart, _, _ := strings.Cut(after, "/")
	idPart, _, _ = strings.Cut(idPart, "?")
	id, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrInvalidStoreURL, storeURL)
	}
	return id, nil
}

// AppInfo fetches the store's public metadata for an application.
func (c *Client) AppInfo(ctx context.Context, appID uuid.UUID) (*AppInfo, error) {
	url := fmt.Sprintf("%s/api/appsLibraryExternalServices/api/asw/apps/%s", c.appsBase, appID)
	var info AppInfo
	if err := c.getJSON(ctx, url, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DeviceTypes fetches the table of wearable models the store knows.
func (c *Client) DeviceTypes(ctx context.Context) ([]DeviceType, error) {
	url := fmt.Sprintf("%s/api/appsLibraryExternalServices/api/asw/deviceTypes", c.appsBase)
	var types []DeviceType
	if err := c.getJSON(ctx, url, &types); err != nil {
		return nil, err
	}
	return types, nil
}

// LatestAppVersionID resolves the newest version id of an application.
// The install endpoint leaks it in its redirect body; there is no cleaner
// public way.
func (c *Client) LatestAppVersionID(ctx context.Context, appID uuid.UUID) (string, error) {
	if c.sessionToken == "" {
		return "", ErrSessionRequired
	}

	url := fmt.Sprintf("%s/api/appsLibraryExternalServices/api/asw/apps/%s/install?unitId=a", c.appsBase, appID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", err
	}
	req.AddCookie(&http.Cookie{Name: "session", Value: c.sessionToken})

	body, err := c.do(req)
	if err != nil {
		return "", err
	}

	_, after, found := strings.Cut(string(body), "appVersionId=")
	if !found {
		return "", fmt.Errorf("install response carries no version id")
	}
	versionID, _, _ := strings.Cut(after, ",")
	return versionID, nil
}

// DownloadApp fetches an application binary for one device model.
// deviceURLName is the store's URL name for the model (see DeviceTypes).
func (c *Client) DownloadApp(ctx context.Context, appID uuid.UUID, versionID, deviceURLName string) ([]byte, error) {
	url := fmt.Sprintf("%s/appsLibraryBusinessServices_v0/rest/apps/%s/versions/%s/binaries/%s",
		c.servicesBase, appID, versionID, deviceURLName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// DownloadSettings renders an application's settings definition into the
// binary blob the watch stores. settings is the serialized form values
// produced by the store's settings editor for this app version.
func (c *Client) DownloadSettings(ctx context.Context, appID uuid.UUID, version uint32, partNumber, locale string, settings []byte) ([]byte, error) {
	if locale == "" {
		locale = "en-us"
	}
	url := fmt.Sprintf("%s/%s/appSettings2/%s/versions/%d/devices/%s/binary",
		c.appsBase, locale, appID, version, partNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(settings))
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// AppUpdates asks the store which of the installed applications have a
// newer version for the given device SKU.
func (c *Client) AppUpdates(ctx context.Context, deviceSKU string, installed []InstalledApp) ([]AppUpdate, error) {
	if c.sessionToken == "" {
		return nil, ErrSessionRequired
	}

	payload, err := json.Marshal(map[string]interface{}{
		"apps":      installed,
		"deviceSKU": deviceSKU,
		"locale":    "",
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/express/appstore/rest/apps/updates", c.servicesBase)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-garmin-client-id", "EXPRESS")
	req.AddCookie(&http.Cookie{Name: "session", Value: c.sessionToken})

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var updates []AppUpdate
	if err := json.Unmarshal(body, &updates); err != nil {
		return nil, fmt.Errorf("decoding app updates: %w", err)
	}
	return updates, nil
}

// FirmwareUpdates asks the unit software update service which firmware
// packages the device described by deviceXML is missing. Entries arrive
// sorted by installation order.
func (c *Client) FirmwareUpdates(ctx context.Context, deviceXML string) ([]FirmwareUpdate, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"ClientInfo":        map[string]interface{}{},
		"GarminDeviceXml":   deviceXML,
		"IsUserInteractive": false,
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/Rce/ProtobufApi/SoftwareUpdateService/GetAllUnitSoftwareUpdates", c.updatesBase)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		SoftwareUpdateOptions []FirmwareUpdate
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding firmware updates: %w", err)
	}

	updates := resp.SoftwareUpdateOptions
	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].InstallationOrder < updates[j].InstallationOrder
	})
	return updates, nil
}

// DownloadFirmware fetches one firmware image and verifies it against the
// feed's declared size and MD5.
func (c *Client) DownloadFirmware(ctx context.Context, update *FirmwareUpdate) ([]byte, error) {
	if update.Location.IsRelative {
		return nil, fmt.Errorf("relative firmware URL not supported: %s", update.Location.URL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, update.Location.URL, nil)
	if err != nil {
		return nil, err
	}
	data, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if update.Location.Size != 0 && update.Location.Size != len(data) {
		return nil, fmt.Errorf("%w: feed declares %d bytes, got %d",
			ErrSizeMismatch, update.Location.Size, len(data))
	}
	if update.Location.MD5 != "" {
		sum := md5.Sum(data)
		if !strings.EqualFold(hex.EncodeToString(sum[:]), update.Location.MD5) {
			return nil, fmt.Errorf("%w: %s", ErrDigestMismatch, update.DisplayName)
		}
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Endpoint: req.URL.Path,
			Status:   resp.StatusCode,
			Body:     strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}
