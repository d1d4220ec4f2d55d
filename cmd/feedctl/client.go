package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mycelian/mycelian-feed/internal/model"
)

func newClient(base string) *resty.Client {
	return resty.New().
		SetBaseURL(base).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
}

func userPath(userID, suffix string) string {
	return "/api/users/" + url.PathEscape(userID) + suffix
}

func runFeed(c *resty.Client, userID string, page, pageSize int, session string, out io.Writer) error {
	if userID == "" {
		return fmt.Errorf("--user required")
	}
	req := c.R()
	if page > 0 {
		req.SetQueryParam("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		req.SetQueryParam("pageSize", strconv.Itoa(pageSize))
	}
	if session != "" {
		req.SetHeader("X-Session-Id", session)
	}
	resp, err := req.Get(userPath(userID, "/feed"))
	if err != nil {
		return err
	}
	return printBody(resp, http.StatusOK, out)
}

func runTrack(c *resty.Client, userID, contentID, kind, session string, out io.Writer) error {
	if userID == "" || contentID == "" {
		return fmt.Errorf("--user and --content required")
	}
	k, err := model.ParseInteractionKind(kind)
	if err != nil {
		return err
	}
	body := map[string]string{"contentId": contentID, "kind": string(k)}
	if session != "" {
		body["sessionId"] = session
	}
	resp, err := c.R().SetBody(body).Post(userPath(userID, "/interactions"))
	if err != nil {
		return err
	}
	return printBody(resp, http.StatusAccepted, out)
}

func runProfile(c *resty.Client, userID string, rebuild bool, out io.Writer) error {
	if userID == "" {
		return fmt.Errorf("--user required")
	}
	var (
		resp *resty.Response
		err  error
	)
	if rebuild {
		resp, err = c.R().Post(userPath(userID, "/profile/rebuild"))
	} else {
		resp, err = c.R().Get(userPath(userID, "/profile"))
	}
	if err != nil {
		return err
	}
	return printBody(resp, http.StatusOK, out)
}

// printBody indents the JSON response, or returns the body as an error on an unexpected status.
func printBody(resp *resty.Response, want int, out io.Writer) error {
	if resp.StatusCode() != want {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), bytes.TrimSpace(resp.Body()))
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, resp.Body(), "", "  "); err != nil {
		_, err = out.Write(resp.Body())
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(out)
	return err
}
