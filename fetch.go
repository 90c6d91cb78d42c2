package sheetorm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/puddle/v2"

	"github.com/Veetinho/sheetorm/gviz"
)

// querySession is one pooled read-path session. The pool bounds how many
// query requests run concurrently against the service and keeps transport
// reuse per session.
type querySession struct {
	client Doer
}

// newSessionPool builds the bounded session pool. When a Doer is injected
// every session shares it; otherwise each session gets its own HTTP client.
func newSessionPool(doer Doer, maxSessions int32) (*puddle.Pool[*querySession], error) {
	return puddle.NewPool(&puddle.Config[*querySession]{
		Constructor: func(ctx context.Context) (*querySession, error) {
			if doer != nil {
				return &querySession{client: doer}, nil
			}
			return &querySession{client: &http.Client{Timeout: 30 * time.Second}}, nil
		},
		Destructor: func(*querySession) {},
		MaxSize:    maxSessions,
	})
}

// fetchQuery issues one read-path request with the given query text and
// parses the envelope. The request is wrapped by the circuit breaker when
// one is configured.
func (c *Client) fetchQuery(ctx context.Context, tq string) (*gviz.Response, error) {
	resource, err := c.sessions.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquiring session: %w", ErrTransport, err)
	}
	defer resource.Release()

	fetch := func() ([]byte, error) {
		return c.fetch(ctx, resource.Value(), tq)
	}

	var body []byte
	if c.breaker != nil {
		body, err = c.breaker.Execute(fetch)
	} else {
		body, err = fetch()
	}
	if err != nil {
		return nil, err
	}

	return gviz.ParseResponse(string(body))
}

// fetch performs the HTTP GET against the query endpoint. HTTP errors are
// suppressed at the transport level and inspected explicitly: a non-200
// status is a transport failure result, not a raised exception.
func (c *Client) fetch(ctx context.Context, sess *querySession, tq string) ([]byte, error) {
	params := url.Values{}
	params.Set("sheet", c.sheet.Name())
	params.Set("tq", tq)
	params.Set("headers", strconv.Itoa(c.headerRow))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.queryURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: token: %w", ErrTransport, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := sess.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}
	return body, nil
}
