// Package reddit discovers coaching leads in public discussion listings.
// It polls the JSON search endpoint of configured subreddits, honoring
// robots.txt and a request-interval rate limit, and maps engaged posts
// into the shared lead shape.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"

	"leadgen-scraper/pkg/config"
	"leadgen-scraper/pkg/models"
	"leadgen-scraper/pkg/score"
	"leadgen-scraper/pkg/utils"
)

const defaultBaseURL = "https://www.reddit.com"

// listing mirrors the relevant slice of the JSON listing response.
type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title       string  `json:"title"`
				Author      string  `json:"author"`
				Subreddit   string  `json:"subreddit"`
				Permalink   string  `json:"permalink"`
				Score       int     `json:"score"`
				NumComments int     `json:"num_comments"`
				CreatedUTC  float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Scraper polls subreddit search listings for engaged discussion posts.
type Scraper struct {
	client  *http.Client
	baseURL string
	cfg     config.RedditConfig
	limiter *rate.Limiter
	log     *logrus.Entry

	robotsOnce sync.Once
	robots     *robotstxt.Group
}

// NewScraper builds a Scraper. baseURL is overridable for tests; pass ""
// for the production endpoint.
func NewScraper(client *http.Client, baseURL string, cfg config.RedditConfig, logger *logrus.Entry) *Scraper {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	interval := cfg.RequestInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Scraper{
		client:  client,
		baseURL: baseURL,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		log:     logger,
	}
}

// FindPosts queries every configured subreddit for every keyword and
// returns the posts meeting the engagement floor, deduplicated by
// permalink. Individual request failures are logged and skipped; an error
// is returned only when no request succeeded.
func (s *Scraper) FindPosts(ctx context.Context) ([]models.RedditPost, error) {
	seen := make(map[string]struct{})
	var posts []models.RedditPost
	var lastErr error
	succeeded := 0

	for _, subreddit := range s.cfg.Subreddits {
		for _, keyword := range s.cfg.Keywords {
			if err := s.limiter.Wait(ctx); err != nil {
				return posts, err
			}

			batch, err := s.search(ctx, subreddit, keyword)
			if err != nil {
				lastErr = err
				s.log.WithFields(logrus.Fields{
					"subreddit":      subreddit,
					"keyword":        keyword,
					"error_category": utils.CategorizeError(err),
				}).Warnf("Listing request failed: %v", err)
				continue
			}
			succeeded++

			for _, post := range batch {
				if post.Score+post.NumComments < s.cfg.MinEngagement {
					continue
				}
				if _, dup := seen[post.Permalink]; dup {
					continue
				}
				seen[post.Permalink] = struct{}{}
				posts = append(posts, post)
			}
		}
	}

	if succeeded == 0 && lastErr != nil {
		return posts, lastErr
	}
	s.log.WithField("posts", len(posts)).Info("Discussion listing sweep complete")
	return posts, nil
}

// Leads maps posts into the shared lead shape. The post title plays the
// headline role so keyword scoring applies, and the raw engagement numbers
// are prepended to the notes.
func (s *Scraper) Leads(posts []models.RedditPost) []models.ScoredLead {
	leads := make([]models.ScoredLead, 0, len(posts))
	for _, post := range posts {
		lead := score.Score(models.RawProfile{
			Name:       post.Author,
			Headline:   post.Title,
			Location:   "r/" + post.Subreddit,
			ProfileURL: s.baseURL + post.Permalink,
		})
		lead.Notes = fmt.Sprintf("Engagement: %d points, %d comments | %s",
			post.Score, post.NumComments, lead.Notes)
		leads = append(leads, lead)
	}
	return leads
}

func (s *Scraper) search(ctx context.Context, subreddit, keyword string) ([]models.RedditPost, error) {
	path := fmt.Sprintf("/r/%s/search.json", subreddit)
	if !s.allowed(ctx, path) {
		return nil, utils.WrapErrorf(utils.ErrRobotsDisallowed, "robots.txt disallows %s", path)
	}

	q := url.Values{}
	q.Set("q", keyword)
	q.Set("restrict_sr", "1")
	q.Set("sort", "top")
	q.Set("t", s.cfg.TimeFilter)
	q.Set("limit", fmt.Sprintf("%d", s.cfg.PostLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, utils.WrapErrorf(utils.ErrNavigation, "building listing request: %v", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing request for r/%s: %w", subreddit, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, httpStatusError(resp.StatusCode, path)
	}

	var parsed listing
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, utils.WrapErrorf(utils.ErrParsing, "decoding JSON listing for r/%s: %v", subreddit, err)
	}

	posts := make([]models.RedditPost, 0, len(parsed.Data.Children))
	for _, child := range parsed.Data.Children {
		d := child.Data
		posts = append(posts, models.RedditPost{
			Title:       d.Title,
			Author:      d.Author,
			Subreddit:   d.Subreddit,
			Permalink:   d.Permalink,
			Score:       d.Score,
			NumComments: d.NumComments,
			CreatedUTC:  time.Unix(int64(d.CreatedUTC), 0).UTC(),
		})
	}
	return posts, nil
}

// allowed consults robots.txt, fetched once per scraper. A missing or
// unreadable robots.txt permits crawling, matching the usual convention.
func (s *Scraper) allowed(ctx context.Context, path string) bool {
	s.robotsOnce.Do(func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/robots.txt", nil)
		if err != nil {
			return
		}
		req.Header.Set("User-Agent", s.cfg.UserAgent)
		resp, err := s.client.Do(req)
		if err != nil {
			s.log.Warnf("Could not fetch robots.txt, assuming allowed: %v", err)
			return
		}
		defer resp.Body.Close()
		data, err := robotstxt.FromResponse(resp)
		if err != nil {
			s.log.Warnf("Could not parse robots.txt, assuming allowed: %v", err)
			return
		}
		s.robots = data.FindGroup(s.cfg.UserAgent)
	})
	if s.robots == nil {
		return true
	}
	return s.robots.Test(path)
}

func httpStatusError(status int, path string) error {
	switch {
	case status >= 400 && status < 500:
		return utils.WrapErrorf(utils.ErrClientHTTPError, "status %d fetching %s", status, path)
	case status >= 500:
		return utils.WrapErrorf(utils.ErrServerHTTPError, "status %d fetching %s", status, path)
	default:
		return utils.WrapErrorf(utils.ErrOtherHTTPError, "status %d fetching %s", status, path)
	}
}
