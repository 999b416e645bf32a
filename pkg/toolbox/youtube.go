package toolbox

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/gaia/pkg/inference/tools"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ExtractVideoID returns the video id of a watch URL, a short link, a
// shorts or embed URL, or a bare id.
func ExtractVideoID(locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", errors.New("empty video locator")
	}
	if videoIDPattern.MatchString(locator) {
		return locator, nil
	}

	u, err := url.Parse(locator)
	if err != nil {
		return "", errors.Wrapf(err, "invalid video locator %q", locator)
	}
	if v := u.Query().Get("v"); v != "" && videoIDPattern.MatchString(v) {
		return v, nil
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if host == "" && len(segments) > 0 {
		// schemeless input such as youtu.be/abc
		host = strings.TrimPrefix(strings.ToLower(segments[0]), "www.")
		segments = segments[1:]
	}
	if host == "youtu.be" && len(segments) > 0 && videoIDPattern.MatchString(segments[0]) {
		return segments[0], nil
	}
	if len(segments) >= 2 {
		switch segments[0] {
		case "shorts", "embed", "live", "v":
			if videoIDPattern.MatchString(segments[1]) {
				return segments[1], nil
			}
		}
	}
	return "", errors.Errorf("could not extract a video id from %q", locator)
}

// TranscriptSegment is one timed caption line. Offsets are in seconds.
type TranscriptSegment struct {
	Start    float64
	Duration float64
	Text     string
}

func (s TranscriptSegment) End() float64 { return s.Start + s.Duration }

// TranscriptProvider fetches the timed transcript of a video. It returns a
// *tools.TranscriptUnavailableError when the video has none.
type TranscriptProvider interface {
	FetchTranscript(ctx context.Context, videoID string) ([]TranscriptSegment, error)
}

// YouTubeProvider reads caption tracks from the watch page of a video.
type YouTubeProvider struct {
	BaseURL    string
	Languages  []string
	HTTPClient *http.Client
}

var _ TranscriptProvider = (*YouTubeProvider)(nil)

func NewYouTubeProvider(baseURL string, languages []string, client *http.Client) *YouTubeProvider {
	if client == nil {
		client = http.DefaultClient
	}
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	return &YouTubeProvider{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Languages:  languages,
		HTTPClient: client,
	}
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type timedText struct {
	Texts []struct {
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
		Body  string  `xml:",chardata"`
	} `xml:"text"`
}

func (p *YouTubeProvider) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not create request")
	}
	req.Header.Set("Accept-Language", strings.Join(p.Languages, ","))
	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch "+rawURL)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Errorf("youtube returned status %d", resp.StatusCode)
	}
	return resp, nil
}

func (p *YouTubeProvider) FetchTranscript(ctx context.Context, videoID string) ([]TranscriptSegment, error) {
	watchURL := p.BaseURL + "/watch?v=" + url.QueryEscape(videoID)
	resp, err := p.get(ctx, watchURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, errors.Wrap(err, "could not parse watch page")
	}

	player, found, err := findPlayerResponse(doc)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &tools.TranscriptUnavailableError{VideoID: videoID, Reason: "no player data on watch page"}
	}
	tracks := player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		reason := "video has no captions"
		if player.PlayabilityStatus.Reason != "" {
			reason = player.PlayabilityStatus.Reason
		}
		return nil, &tools.TranscriptUnavailableError{VideoID: videoID, Reason: reason}
	}

	track := pickTrack(tracks, p.Languages)
	trackURL, err := url.Parse(p.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid base url")
	}
	ref, err := url.Parse(track.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid caption track url")
	}
	log.Debug().Str("video_id", videoID).Str("language", track.LanguageCode).Str("kind", track.Kind).Msg("fetching caption track")

	resp, err = p.get(ctx, trackURL.ResolveReference(ref).String())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tt timedText
	if err := xml.NewDecoder(resp.Body).Decode(&tt); err != nil {
		return nil, errors.Wrap(err, "could not decode caption track")
	}
	segments := make([]TranscriptSegment, 0, len(tt.Texts))
	for _, t := range tt.Texts {
		text := strings.Join(strings.Fields(html.UnescapeString(t.Body)), " ")
		if text == "" {
			continue
		}
		segments = append(segments, TranscriptSegment{Start: t.Start, Duration: t.Dur, Text: text})
	}
	if len(segments) == 0 {
		return nil, &tools.TranscriptUnavailableError{VideoID: videoID, Reason: "caption track is empty"}
	}
	return segments, nil
}

func findPlayerResponse(doc *goquery.Document) (*playerResponse, bool, error) {
	const marker = "ytInitialPlayerResponse"
	var script string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if t := s.Text(); strings.Contains(t, marker) {
			script = t
			return false
		}
		return true
	})
	if script == "" {
		return nil, false, nil
	}
	rest := script[strings.Index(script, marker):]
	brace := strings.Index(rest, "{")
	if brace < 0 {
		return nil, false, nil
	}
	var player playerResponse
	if err := json.NewDecoder(strings.NewReader(rest[brace:])).Decode(&player); err != nil {
		return nil, false, errors.Wrap(err, "could not decode player response")
	}
	return &player, true, nil
}

// pickTrack prefers manual captions in the first matching language, then
// generated ones, then the first track.
func pickTrack(tracks []captionTrack, languages []string) captionTrack {
	for _, lang := range languages {
		for _, t := range tracks {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t
			}
		}
		for _, t := range tracks {
			if t.LanguageCode == lang {
				return t
			}
		}
	}
	return tracks[0]
}

// FormatTranscript renders segments one per line under a Transcript header.
func FormatTranscript(segments []TranscriptSegment) (string, error) {
	lines := make([]string, 0, len(segments))
	for _, s := range segments {
		lines = append(lines, fmt.Sprintf("%.2f - %.2f: %s", s.Start, s.End(), s.Text))
	}
	return render(transcriptTemplate, struct{ Lines []string }{lines})
}

type YouTubeTranscript struct {
	provider TranscriptProvider
}

var _ tools.Tool = (*YouTubeTranscript)(nil)

func NewYouTubeTranscript(provider TranscriptProvider) *YouTubeTranscript {
	return &YouTubeTranscript{provider: provider}
}

func (y *YouTubeTranscript) Spec() tools.ToolSpec {
	return tools.ToolSpec{
		Name:        "youtube_transcript",
		Description: "Fetches the timed transcript of the YouTube video at the given URL.",
		Parameters: []tools.Parameter{
			{Name: "video_url", Type: tools.TypeString, Description: "The URL of the YouTube video.", Required: true},
		},
	}
}

func (y *YouTubeTranscript) Execute(ctx context.Context, args tools.Arguments) (string, error) {
	locator, _ := args.String("video_url")
	id, err := ExtractVideoID(locator)
	if err != nil {
		return "", err
	}
	segments, err := y.provider.FetchTranscript(ctx, id)
	if err != nil {
		var unavailable *tools.TranscriptUnavailableError
		if errors.As(err, &unavailable) {
			return "", err
		}
		return "", tools.NewProviderError("youtube", err)
	}
	if len(segments) == 0 {
		return "", &tools.TranscriptUnavailableError{VideoID: id, Reason: "empty transcript"}
	}
	return FormatTranscript(segments)
}
