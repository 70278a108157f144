// Package cloudwatch pages through a CloudWatch Logs stream with the
// GetLogEvents backward and forward tokens.
package cloudwatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/google/uuid"

	"github.com/jmurray2011/skein/internal/logging"
	"github.com/jmurray2011/skein/internal/source"
)

// DefaultLimit is the number of events requested per page.
const DefaultLimit = 100

// Cursor prefixes. A page read backwards knows newer events exist; a page
// read forwards knows older ones do.
const (
	olderPrefix = "b|"
	newerPrefix = "f|"
)

// idSpace namespaces the name-based entry ids.
var idSpace = uuid.MustParse("9c4b7a2e-3f1d-5e8a-b6c0-1d2e3f4a5b6c")

func init() {
	source.Register("cloudwatch", openSource)
}

// Source implements source.Source for one CloudWatch log group. The log
// stream is the deployment of the requested view, or the stream given when
// the source was opened.
type Source struct {
	logGroup  string
	stream    string
	limit     int32
	api       logsAPI
	profile   string
	region    string
	accountID string
}

func openSource(u *url.URL, opts source.OpenOptions) (source.Source, error) {
	logGroup := u.Path
	if logGroup == "" {
		return nil, fmt.Errorf("cloudwatch URI requires a log group path")
	}

	q := u.Query()
	profile := q.Get("profile")
	if profile == "" {
		profile = opts.Profile
	}
	region := q.Get("region")
	if region == "" {
		region = opts.Region
	}

	limit := opts.PageSize
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 10000 {
			return nil, fmt.Errorf("invalid limit %q (1-10000)", v)
		}
		limit = n
	}

	return NewSource(context.Background(), logGroup, q.Get("stream"), profile, region, limit)
}

// NewSource creates a source for logGroup using the shared AWS
// configuration for profile and region.
func NewSource(ctx context.Context, logGroup, stream, profile, region string, limit int) (*Source, error) {
	cfg, err := awsConfig(ctx, profile, region)
	if err != nil {
		return nil, err
	}

	s := newSource(logGroup, stream, limit, cloudwatchlogs.NewFromConfig(cfg))
	s.profile = profile
	s.region = cfg.Region

	// The account is only shown in metadata.
	if id, err := callerAccount(ctx, cfg); err == nil {
		s.accountID = id
	} else {
		logging.Debug("Could not determine AWS account ID: %v", err)
	}
	return s, nil
}

func newSource(logGroup, stream string, limit int, api logsAPI) *Source {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Source{logGroup: logGroup, stream: stream, limit: int32(limit), api: api}
}

// FetchPage reads one page of events.
func (s *Source) FetchPage(ctx context.Context, req source.PageRequest) (*source.Page, error) {
	stream := req.Fingerprint.Deployment
	if stream == "" {
		stream = s.stream
	}
	if stream == "" {
		return nil, fmt.Errorf("cloudwatch source %s needs a log stream: set --deployment or ?stream=", s.logGroup)
	}

	in := &cloudwatchlogs.GetLogEventsInput{
		LogGroupName:  aws.String(s.logGroup),
		LogStreamName: aws.String(stream),
		Limit:         aws.Int32(s.limit),
	}
	if fp := req.Fingerprint; !fp.Start.IsZero() {
		in.StartTime = aws.Int64(fp.Start.UnixMilli())
	}
	if fp := req.Fingerprint; !fp.End.IsZero() {
		in.EndTime = aws.Int64(fp.End.UnixMilli())
	}

	c := string(req.Cursor)
	switch {
	case c == "":
		in.StartFromHead = aws.Bool(false)
	case strings.HasPrefix(c, olderPrefix):
		in.NextToken = aws.String(strings.TrimPrefix(c, olderPrefix))
	case strings.HasPrefix(c, newerPrefix):
		in.NextToken = aws.String(strings.TrimPrefix(c, newerPrefix))
		in.StartFromHead = aws.Bool(true)
	default:
		// Not a cursor this source issued: the position does not exist.
		return nil, &source.TransportError{
			Op:     "GetLogEvents",
			URL:    s.logGroup + "/" + stream,
			Status: http.StatusNotFound,
			Err:    fmt.Errorf("unrecognised cursor %q", c),
		}
	}

	out, err := s.api.GetLogEvents(ctx, in)
	if err != nil {
		te := &source.TransportError{Op: "GetLogEvents", URL: s.logGroup + "/" + stream, Err: err}
		var re *awshttp.ResponseError
		if errors.As(err, &re) {
			te.Status = re.HTTPStatusCode()
		}
		return nil, te
	}

	full := len(out.Events) >= int(s.limit)
	page := &source.Page{Entries: s.entries(out.Events, stream, req.Fingerprint.Search)}

	backward := token(olderPrefix, out.NextBackwardToken)
	forward := token(newerPrefix, out.NextForwardToken)
	switch {
	case c == "":
		if full {
			page.Next = backward
		}
	case strings.HasPrefix(c, olderPrefix):
		if full {
			page.Next = backward
		}
		page.Previous = forward
	default:
		page.Next = backward
		if full {
			page.Previous = forward
		}
	}
	return page, nil
}

// entries converts events, which arrive oldest first, into newest-first
// entries matching search.
func (s *Source) entries(events []types.OutputLogEvent, stream, search string) []source.LogEntry {
	search = strings.ToLower(strings.TrimSpace(search))

	out := make([]source.LogEntry, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		msg := strings.TrimRight(aws.ToString(ev.Message), "\n")
		if search != "" && !strings.Contains(strings.ToLower(msg), search) {
			continue
		}

		ts := aws.ToInt64(ev.Timestamp)
		key := fmt.Sprintf("%s|%s|%d|%d|%s", s.logGroup, stream, ts, aws.ToInt64(ev.IngestionTime), msg)

		level := source.LevelInfo
		if strings.Contains(msg, "ERROR") {
			level = source.LevelError
		}

		out = append(out, source.LogEntry{
			ID:           uuid.NewSHA1(idSpace, []byte(key)),
			Content:      msg,
			Time:         time.UnixMilli(ts).UTC(),
			Level:        level,
			DeploymentID: stream,
			ServiceID:    s.logGroup,
			Source:       "cloudwatch",
		})
	}
	return out
}

func token(prefix string, t *string) source.Cursor {
	if t == nil || *t == "" {
		return source.NoCursor
	}
	return source.Cursor(prefix + *t)
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return "cloudwatch"
}

// Metadata returns source metadata.
func (s *Source) Metadata() source.SourceMetadata {
	return source.SourceMetadata{
		Type:      "cloudwatch",
		URI:       s.logGroup,
		Profile:   s.profile,
		Region:    s.region,
		AccountID: s.accountID,
	}
}

// Close releases any resources held by the source.
func (s *Source) Close() error {
	return nil
}

// LogGroup returns the log group name.
func (s *Source) LogGroup() string {
	return s.logGroup
}
