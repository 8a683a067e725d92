// Package explorer fetches the WalletConnect wallet directory, used by dApp
// UIs to offer wallet choices with names and icons.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"moff.io/web3session/pkg/errors"
)

const (
	defaultAPIBaseURL = "https://explorer-api.walletconnect.com/v3"
	defaultTimeout    = time.Second * 10
)

type Client struct {
	apiBaseURL string
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		apiBaseURL: defaultAPIBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

type explorerResponse struct {
	Listings map[string]walletData `json:"listings"`
	Count    int                   `json:"count"`
	Total    int                   `json:"total"`
}

type walletData struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Chains   []string       `json:"chains"`
	ImageID  string         `json:"image_id"`
	Mobile   *linkSet       `json:"mobile"`
	Desktop  *linkSet       `json:"desktop"`
	Metadata walletMetadata `json:"metadata"`
}

type linkSet struct {
	Native    string `json:"native"`
	Universal string `json:"universal"`
}

func (l *linkSet) nativeLink() string {
	if l == nil {
		return ""
	}
	return l.Native
}

type walletMetadata struct {
	ShortName string `json:"shortName"`
}

// ImageSize selects a logo resolution.
type ImageSize string

const (
	ImageSmall  ImageSize = "sm"
	ImageMedium ImageSize = "md"
	ImageLarge  ImageSize = "lg"
)

// WalletDescription is one directory entry usable by a UI.
type WalletDescription struct {
	ID            string
	ShortName     string
	Name          string
	Chains        []uint64
	ImageID       string
	ProjectID     string
	DesktopSchema string
	MobileSchema  string
}

// ImageURL returns the logo URL for the wallet at the given size.
func (w *WalletDescription) ImageURL(size ImageSize) string {
	return fmt.Sprintf("%s/logo/%s/%s?projectId=%s", defaultAPIBaseURL, size, w.ImageID, w.ProjectID)
}

// FetchWallets downloads the wallet directory for the project. Listings with
// neither a desktop nor a mobile native link are skipped.
func (c *Client) FetchWallets(ctx context.Context, projectID string) ([]WalletDescription, error) {
	url := fmt.Sprintf("%s/wallets?projectId=%s", c.apiBaseURL, projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build explorer request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request wallet directory")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read wallet directory response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("wallet directory responded %v: %s", resp.StatusCode, body)
	}

	var parsed explorerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, "unmarshal wallet directory")
	}
	return parsed.wallets(projectID), nil
}

func (r *explorerResponse) wallets(projectID string) []WalletDescription {
	wallets := make([]WalletDescription, 0, len(r.Listings))
	for _, data := range r.Listings {
		desktop := data.Desktop.nativeLink()
		mobile := data.Mobile.nativeLink()
		if desktop == "" && mobile == "" {
			continue
		}
		shortName := data.Metadata.ShortName
		if shortName == "" {
			shortName = data.Name
		}
		wallets = append(wallets, WalletDescription{
			ID:            data.ID,
			ShortName:     shortName,
			Name:          data.Name,
			Chains:        eip155Chains(data.Chains),
			ImageID:       data.ImageID,
			ProjectID:     projectID,
			DesktopSchema: desktop,
			MobileSchema:  mobile,
		})
	}
	return wallets
}

// eip155Chains keeps the eip155-namespaced chain ids and drops the rest.
func eip155Chains(chains []string) []uint64 {
	ids := make([]uint64, 0, len(chains))
	for _, c := range chains {
		raw := strings.TrimPrefix(c, "eip155:")
		if raw == c {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
