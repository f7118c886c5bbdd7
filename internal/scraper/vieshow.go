package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"github.com/user/moviebuddy-go/internal/model"
)

const (
	vieshowName    = "Vieshow"
	vieshowPrefix  = "vieshow_"
	vieshowBaseURL = "https://www.vscinemas.com.tw"

	vieshowNowShowingURL = vieshowBaseURL + "/film/index.aspx"
	vieshowComingSoonURL = vieshowBaseURL + "/film/coming.aspx"

	// The ticketing site takes the session id as its only parameter.
	vieshowBookingURL = "https://sales.vscinemas.com.tw/VoucherTicketing/Login.aspx?txtSessionId="

	// Marketing suffix appended to most synopses, cut during extraction.
	vieshowPresaleMarker = "《全台預售情報》"

	defaultBatchSize = 5
)

var (
	// movieDetailLinkPattern matches hrefs like "/film/detail.aspx?id=8173"
	movieDetailLinkPattern = regexp.MustCompile(`/detail\.aspx\?id=(\d+)`)

	// theaterOptionPattern matches <option value="23">台北信義威秀</option>
	theaterOptionPattern = regexp.MustCompile(`<option value="(\d+)".*?>(.*?)</option>`)
	// theaterAddressPattern finds the address inside the icon-marker item
	theaterAddressPattern = regexp.MustCompile(`(?s)<li class="icon-marker">.*?<p>(.*?)</p>`)

	posterPattern  = regexp.MustCompile(`<figure><img src="(\.\./.*?)"`)
	trailerPattern = regexp.MustCompile(`(?s)<iframe u="image".*?src="(.*?)"`)
	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

	// Version block: one <li> per screen-format/language pairing, each with
	// anchors to the theater articles showing that version.
	versionItemPattern   = regexp.MustCompile(`(?s)<li(?: class="show")?>(.*?)</li>`)
	versionLabelPattern  = regexp.MustCompile(`(?s)<a.*?>(.*?)<span`)
	versionAnchorPattern = regexp.MustCompile(`<a href="#(movieTime.*?)">(.*?)</a>`)

	// Showtime block: <article id="movieTime1_3_23"> per theater/version,
	// day groups inside, time slots inside those.
	articlePattern   = regexp.MustCompile(`(?s)<article id="(movieTime.*?)".*?</article>`)
	dayPattern       = regexp.MustCompile(`(?s)<div class="movieDay">.*?</div>`)
	slotPattern      = regexp.MustCompile(`(?s)<li class="">.*?</li>`)
	sessionIDPattern = regexp.MustCompile(`txtSessionId=(\d+)`)
	slotTimePattern  = regexp.MustCompile(`>(\d{2}:\d{2})</a>`)
)

// Vieshow scrapes the Vieshow Cinemas website. All emitted source ids are
// namespaced with "vieshow_".
type Vieshow struct {
	fetcher   *Fetcher
	batchSize int
}

// NewVieshow creates a Vieshow source. batchSize bounds how many movie
// detail pages are fetched concurrently; <= 0 selects the default.
func NewVieshow(fetcher *Fetcher, batchSize int) *Vieshow {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Vieshow{fetcher: fetcher, batchSize: batchSize}
}

// Name implements Source
func (v *Vieshow) Name() string {
	return vieshowName
}

// Scrape implements Source. Movie ids come from the now-showing and
// coming-soon listing pages; theaters are resolved once; movie detail pages
// are fetched in bounded concurrent batches with per-movie failure
// isolation.
func (v *Vieshow) Scrape(ctx context.Context) (*model.ScrapeResult, error) {
	listingURLs := []string{vieshowNowShowingURL, vieshowComingSoonURL}
	listings := settleAll(ctx, listingURLs, func(ctx context.Context, url string) (string, error) {
		return v.fetcher.FetchWithFallback(ctx, url, "section.movieList")
	})

	var movieIDs []string
	seen := make(map[string]bool)
	failed := 0
	for i, o := range listings {
		if o.err != nil {
			failed++
			log.Warn().Err(o.err).Str("url", listingURLs[i]).Msg("Listing fetch failed")
			continue
		}
		for _, id := range parseMovieIDs(o.value) {
			if !seen[id] {
				seen[id] = true
				movieIDs = append(movieIDs, id)
			}
		}
	}
	if failed == len(listingURLs) {
		return nil, fmt.Errorf("all listing pages unreachable")
	}

	log.Info().Int("count", len(movieIDs)).Msg("Found unique movie IDs")

	theaters := v.resolveTheaters(ctx)
	log.Info().Int("count", len(theaters)).Msg("Resolved theaters")

	result := &model.ScrapeResult{}
	for _, t := range theaters {
		result.Theaters = append(result.Theaters, t)
	}

	for start := 0; start < len(movieIDs); start += v.batchSize {
		end := start + v.batchSize
		if end > len(movieIDs) {
			end = len(movieIDs)
		}

		outcomes := settleAll(ctx, movieIDs[start:end], func(ctx context.Context, id string) (movieWithShowtimes, error) {
			return v.fetchMovie(ctx, id, theaters)
		})
		for i, o := range outcomes {
			if o.err != nil {
				log.Warn().Err(o.err).Str("movieID", movieIDs[start+i]).Msg("Failed to fetch movie details")
				continue
			}
			result.Movies = append(result.Movies, o.value.movie)
			result.Showtimes = append(result.Showtimes, o.value.showtimes...)
		}
	}

	return result, nil
}

// parseMovieIDs scans a listing page for movie detail links and returns the
// raw (un-namespaced) ids in document order, deduplicated.
func parseMovieIDs(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to parse listing page")
		return nil
	}

	var ids []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		m := movieDetailLinkPattern.FindStringSubmatch(href)
		if len(m) > 1 && !seen[m[1]] {
			seen[m[1]] = true
			ids = append(ids, m[1])
		}
	})
	return ids
}

type theaterRef struct {
	id   string
	name string
}

// resolveTheaters discovers every theater id from the <select> control
// embedded in one known-valid theater detail page, then fetches all detail
// pages concurrently. Failures are isolated per theater; a failed discovery
// yields an empty map and downstream showtimes referencing unknown theaters
// are dropped, not fatal. The returned map is keyed by raw origin id.
func (v *Vieshow) resolveTheaters(ctx context.Context) map[string]model.Theater {
	theaters := make(map[string]model.Theater)

	// Any valid theater id works as the reference page.
	refURL := vieshowBaseURL + "/theater/detail.aspx?id=1"
	html, err := v.fetcher.FetchWithFallback(ctx, refURL, "select")
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch theater reference page")
		return theaters
	}

	refs := parseTheaterRefs(html)

	outcomes := settleAll(ctx, refs, func(ctx context.Context, ref theaterRef) (model.Theater, error) {
		return v.fetchTheaterDetail(ctx, ref.id, ref.name)
	})
	for i, o := range outcomes {
		if o.err != nil {
			log.Warn().Err(o.err).Str("theater", refs[i].name).Msg("Failed to fetch theater detail")
			continue
		}
		theaters[refs[i].id] = o.value
	}

	if len(theaters) == 0 {
		log.Warn().Msg("Theater list is empty, all showtimes will be dropped")
	}
	return theaters
}

// parseTheaterRefs pulls theater ids and names from the theater-picker
// <select> control present on every theater detail page.
func parseTheaterRefs(html string) []theaterRef {
	selectBlock := ExtractBetween(html, `<select onchange="javascript:if`, `</select>`)

	var refs []theaterRef
	for _, m := range theaterOptionPattern.FindAllStringSubmatch(selectBlock, -1) {
		id, name := m[1], strings.TrimSpace(m[2])
		// Options like 【雙北】 are region group headers, not theaters.
		if id == "" || name == "" || strings.HasPrefix(name, "【") {
			continue
		}
		refs = append(refs, theaterRef{id: id, name: name})
	}
	return refs
}

// fetchTheaterDetail fetches one theater's detail page and extracts its
// address. Coordinates are rendered client-side upstream and stay (0, 0).
func (v *Vieshow) fetchTheaterDetail(ctx context.Context, id, name string) (model.Theater, error) {
	url := fmt.Sprintf("%s/theater/detail.aspx?id=%s", vieshowBaseURL, id)
	html, err := v.fetcher.Fetch(ctx, url)
	if err != nil {
		return model.Theater{}, fmt.Errorf("fetch theater %s: %w", id, err)
	}

	var address, region string
	info := ExtractBetween(html, `<div class="theaterPosition">`, `</div>`)
	if m := theaterAddressPattern.FindStringSubmatch(info); len(m) > 1 {
		address = strings.TrimSpace(m[1])
		region = regionFromAddress(address)
	}

	return model.Theater{
		SourceID:   vieshowPrefix + id,
		Name:       name,
		Address:    address,
		Region:     region,
		WebsiteURL: url,
	}, nil
}

// regionFromAddress derives a coarse region label from the first three
// runes of the address, e.g. "台北市信義區松壽路20號" -> "台北市". A
// heuristic, not a lookup table.
func regionFromAddress(address string) string {
	runes := []rune(address)
	if len(runes) < 3 {
		return address
	}
	return string(runes[:3])
}

type movieWithShowtimes struct {
	movie     model.Movie
	showtimes []model.Showtime
}

// fetchMovie fetches one movie detail page and extracts the movie record
// plus its showtimes, resolving theaters through the map built by
// resolveTheaters.
func (v *Vieshow) fetchMovie(ctx context.Context, rawID string, theaters map[string]model.Theater) (movieWithShowtimes, error) {
	url := fmt.Sprintf("%s/film/detail.aspx?id=%s", vieshowBaseURL, rawID)
	html, err := v.fetcher.Fetch(ctx, url)
	if err != nil {
		return movieWithShowtimes{}, fmt.Errorf("fetch movie %s: %w", rawID, err)
	}

	movie := parseVieshowMovie(html, rawID)
	showtimes := parseVieshowShowtimes(html, movie.SourceID, theaters)
	return movieWithShowtimes{movie: movie, showtimes: showtimes}, nil
}

// parseVieshowMovie extracts the movie record from the bounded movieInfo
// section of a detail page. Every field extraction tolerates absence.
func parseVieshowMovie(html, rawID string) model.Movie {
	info := ExtractBetween(html, `<section class="movieInfo">`, `</section>`)

	var posterURL string
	if m := posterPattern.FindStringSubmatch(html); len(m) > 1 {
		// "../upload/film/film_xxx.jpg" -> "https://.../upload/film/film_xxx.jpg"
		posterURL = strings.Replace(m[1], "../", vieshowBaseURL+"/", 1)
	}

	var trailerURL string
	if m := trailerPattern.FindStringSubmatch(html); len(m) > 1 {
		trailerURL = strings.TrimSpace(m[1])
	}

	return model.Movie{
		SourceID:     vieshowPrefix + rawID,
		Title:        ExtractBetween(info, `<h1>`, `</h1>`),
		EnglishTitle: ExtractBetween(info, `<h2>`, `</h2>`),
		PosterURL:    posterURL,
		Synopsis:     parseSynopsis(html),
		Director:     stripTags(ExtractBetween(info, `<td>導演：</td>`, `</p>`)),
		Actors:       splitNameList(ExtractBetween(info, `<td>演員：</td>`, `</p>`)),
		Duration:     ParseDuration(ExtractBetween(info, `<td>片長：</td>`, `</td>`)),
		Rating:       ExtractBetween(info, `<div class="markArea"><span class="`, `">`),
		TrailerURL:   trailerURL,
		ReleaseDate:  ExtractBetween(info, `<time>上映日期：`, `</time>`),
		BookingOpen:  true,
		Genres:       splitNameList(ExtractBetween(info, `<td>類型：</td>`, `</td>`)),
	}
}

// parseSynopsis extracts the synopsis block, strips markup, and cuts the
// trailing presale marketing section.
func parseSynopsis(html string) string {
	raw := ExtractBetween(html, `<div class="bbsArticle">`, `</div>`)
	text := htmlTagPattern.ReplaceAllString(raw, " ")
	if idx := strings.Index(text, vieshowPresaleMarker); idx >= 0 {
		text = text[:idx]
	}
	return strings.Join(strings.Fields(text), " ")
}

// splitNameList splits a 、-separated name list, stripping markup and the
// voice-acting marker.
func splitNameList(raw string) []string {
	text := stripTags(raw)
	text = strings.ReplaceAll(text, "(配音)", "")
	var names []string
	for _, part := range strings.Split(text, "、") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func stripTags(s string) string {
	return strings.TrimSpace(htmlTagPattern.ReplaceAllString(s, ""))
}

type versionInfo struct {
	version   string
	language  string
	theaterID string
}

// parseVieshowShowtimes cross-references the version block against the
// showtime articles. Articles without a version entry and showtimes whose
// theater is unknown are skipped silently; slots missing a session id or
// time are dropped.
func parseVieshowShowtimes(html, movieSourceID string, theaters map[string]model.Theater) []model.Showtime {
	// Composite keys look like "movieTime1_3_23": version indexes plus the
	// raw theater id.
	versions := make(map[string]versionInfo)

	versionSection := ExtractBetween(html, `<div class="movieVersion"`, `</div>`)
	for _, item := range versionItemPattern.FindAllStringSubmatch(versionSection, -1) {
		block := item[1]

		var version, language string
		if m := versionLabelPattern.FindStringSubmatch(block); len(m) > 1 {
			// "數位 / 日" -> version "數位", language "日"
			parts := strings.SplitN(strings.TrimSpace(m[1]), " / ", 2)
			version = strings.TrimSpace(parts[0])
			if len(parts) > 1 {
				language = strings.TrimSpace(parts[1])
			}
		}

		if version != "" && MapScreenType(version) == model.ScreenGeneral && !strings.Contains(version, "數位") {
			log.Warn().Str("label", version).Msg("Unmapped screen-type label, defaulting to General")
		}

		for _, anchor := range versionAnchorPattern.FindAllStringSubmatch(block, -1) {
			key := anchor[1]
			segments := strings.Split(key, "_")
			versions[key] = versionInfo{
				version:   version,
				language:  language,
				theaterID: segments[len(segments)-1],
			}
		}
	}

	var showtimes []model.Showtime

	showtimeSection := ExtractBetween(html, `<div class="movieTime">`, `<div class="movieVideo">`)
	for _, article := range articlePattern.FindAllStringSubmatch(showtimeSection, -1) {
		key, articleHTML := article[1], article[0]

		vi, ok := versions[key]
		if !ok {
			continue
		}
		theater, ok := theaters[vi.theaterID]
		if !ok {
			continue
		}

		for _, dayHTML := range dayPattern.FindAllString(articleHTML, -1) {
			dateText := ExtractBetween(dayHTML, `<h4>`, `</h4>`)

			for _, slotHTML := range slotPattern.FindAllString(dayHTML, -1) {
				sid := sessionIDPattern.FindStringSubmatch(slotHTML)
				slotTime := slotTimePattern.FindStringSubmatch(slotHTML)
				if len(sid) < 2 || len(slotTime) < 2 {
					continue
				}

				ts, parsed := ComposeShowtime(dateText, slotTime[1])
				if !parsed {
					log.Warn().
						Str("date", dateText).
						Str("time", slotTime[1]).
						Str("movie", movieSourceID).
						Msg("Unparseable show date, falling back to current time")
				}

				showtimes = append(showtimes, model.Showtime{
					SourceID:   vieshowPrefix + sid[1],
					MovieID:    movieSourceID,
					TheaterID:  theater.SourceID,
					BookingURL: vieshowBookingURL + sid[1],
					Time:       ts.Format(time.RFC3339),
					ScreenType: MapScreenType(vi.version),
					Language:   MapLanguage(vi.language),
					Price:      0, // not present on this page
				})
			}
		}
	}

	return showtimes
}
