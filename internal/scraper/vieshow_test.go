package scraper

import (
	"reflect"
	"testing"

	"github.com/user/moviebuddy-go/internal/model"
)

const listingFixture = `
<html><body>
<section class="movieList">
  <ul>
    <li><a href="/film/detail.aspx?id=8173">沙丘：第三部</a></li>
    <li><a href="/film/detail.aspx?id=8174">蠟筆小新</a></li>
    <li><a href="/film/detail.aspx?id=8173">沙丘：第三部（重複）</a></li>
    <li><a href="/news/list.aspx">最新消息</a></li>
  </ul>
</section>
</body></html>`

func TestParseMovieIDs(t *testing.T) {
	got := parseMovieIDs(listingFixture)
	want := []string{"8173", "8174"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseMovieIDs() = %v, want %v", got, want)
	}

	if got := parseMovieIDs("<html><body>no links</body></html>"); len(got) != 0 {
		t.Errorf("expected no ids, got %v", got)
	}
}

const theaterSelectFixture = `
<html><body>
<select onchange="javascript:if(this.value!=''){location.href=this.value;}">
  <option value="">請選擇影城</option>
  <option value="0">【雙北】</option>
  <option value="23" selected>台北信義威秀影城</option>
  <option value="37">板橋大遠百威秀影城</option>
  <option value="0">【桃竹苗】</option>
  <option value="12">桃園統領威秀影城</option>
</select>
</body></html>`

func TestParseTheaterRefs(t *testing.T) {
	got := parseTheaterRefs(theaterSelectFixture)
	want := []theaterRef{
		{id: "23", name: "台北信義威秀影城"},
		{id: "37", name: "板橋大遠百威秀影城"},
		{id: "12", name: "桃園統領威秀影城"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseTheaterRefs() = %v, want %v", got, want)
	}
}

func TestRegionFromAddress(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"台北市信義區松壽路20號", "台北市"},
		{"新竹市中央路229號", "新竹市"},
		{"台中", "台中"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := regionFromAddress(tt.address); got != tt.want {
			t.Errorf("regionFromAddress(%q) = %q, want %q", tt.address, got, tt.want)
		}
	}
}

const movieDetailFixture = `
<html><body>
<section class="movieInfo">
  <figure><img src="../upload/film/film_8173.jpg" alt="poster"></figure>
  <h1>沙丘：第三部</h1>
  <h2>Dune: Part Three</h2>
  <div class="markArea"><span class="PG12">輔12級</span></div>
  <time>上映日期：2026-12-18</time>
  <table>
    <tr><td>導演：</td><td><p>丹尼·維勒納夫</p></td></tr>
    <tr><td>演員：</td><td><p>提摩西·夏勒梅、千黛亞、宮野真守(配音)</p></td></tr>
    <tr><td>片長：</td><td>1 時 45 分</td></tr>
    <tr><td>類型：</td><td>科幻、冒險</td></tr>
  </table>
</section>
<iframe u="image" src="https://www.youtube.com/embed/abc123" frameborder="0"></iframe>
<div class="bbsArticle"><p>保羅的傳奇進入最終章。</p><p>沙漠之戰一觸即發。</p>《全台預售情報》<p>預售資訊請洽影城。</p></div>
<div class="movieVersion" id="filmVersionTag">
  <ul>
    <li class="show"><a href="javascript:;">IMAX / 英<span>選擇</span></a><a href="#movieTime1_1_23">台北信義威秀影城</a></li>
    <li><a href="javascript:;">數位 / 英<span>選擇</span></a><a href="#movieTime2_1_23">台北信義威秀影城</a><a href="#movieTime2_1_99">不明影城</a></li>
  </ul>
</div>
<div class="movieTime">
  <article id="movieTime1_1_23">
    <div class="movieDay"><h4>2025 年 11 月 10 日 星期一</h4>
      <ul>
        <li class=""><a href="https://sales.vscinemas.com.tw/VoucherTicketing/Login.aspx?txtSessionId=90001">10:30</a></li>
        <li class=""><a href="javascript:;">售完</a></li>
      </ul>
    </div>
  </article>
  <article id="movieTime2_1_23">
    <div class="movieDay"><h4>2025 年 11 月 10 日 星期一</h4>
      <ul>
        <li class=""><a href="https://sales.vscinemas.com.tw/VoucherTicketing/Login.aspx?txtSessionId=90002">13:30</a></li>
      </ul>
    </div>
  </article>
  <article id="movieTime2_1_99">
    <div class="movieDay"><h4>2025 年 11 月 10 日 星期一</h4>
      <ul>
        <li class=""><a href="https://sales.vscinemas.com.tw/VoucherTicketing/Login.aspx?txtSessionId=90003">16:30</a></li>
      </ul>
    </div>
  </article>
  <article id="movieTime9_9_23">
    <div class="movieDay"><h4>2025 年 11 月 10 日 星期一</h4>
      <ul>
        <li class=""><a href="https://sales.vscinemas.com.tw/VoucherTicketing/Login.aspx?txtSessionId=90004">19:30</a></li>
      </ul>
    </div>
  </article>
<div class="movieVideo">
</body></html>`

func TestParseVieshowMovie(t *testing.T) {
	movie := parseVieshowMovie(movieDetailFixture, "8173")

	if movie.SourceID != "vieshow_8173" {
		t.Errorf("unexpected source id %q", movie.SourceID)
	}
	if movie.Title != "沙丘：第三部" {
		t.Errorf("unexpected title %q", movie.Title)
	}
	if movie.EnglishTitle != "Dune: Part Three" {
		t.Errorf("unexpected english title %q", movie.EnglishTitle)
	}
	if movie.PosterURL != "https://www.vscinemas.com.tw/upload/film/film_8173.jpg" {
		t.Errorf("unexpected poster url %q", movie.PosterURL)
	}
	if movie.Director != "丹尼·維勒納夫" {
		t.Errorf("unexpected director %q", movie.Director)
	}
	wantActors := []string{"提摩西·夏勒梅", "千黛亞", "宮野真守"}
	if !reflect.DeepEqual(movie.Actors, wantActors) {
		t.Errorf("unexpected actors %v, want %v", movie.Actors, wantActors)
	}
	if movie.Duration != 105 {
		t.Errorf("unexpected duration %d", movie.Duration)
	}
	if movie.Rating != "PG12" {
		t.Errorf("unexpected rating %q", movie.Rating)
	}
	if movie.TrailerURL != "https://www.youtube.com/embed/abc123" {
		t.Errorf("unexpected trailer url %q", movie.TrailerURL)
	}
	if movie.ReleaseDate != "2026-12-18" {
		t.Errorf("unexpected release date %q", movie.ReleaseDate)
	}
	wantGenres := []string{"科幻", "冒險"}
	if !reflect.DeepEqual(movie.Genres, wantGenres) {
		t.Errorf("unexpected genres %v, want %v", movie.Genres, wantGenres)
	}
	if movie.Synopsis != "保羅的傳奇進入最終章。 沙漠之戰一觸即發。" {
		t.Errorf("unexpected synopsis %q", movie.Synopsis)
	}
	if !movie.BookingOpen {
		t.Error("expected booking open")
	}
}

func TestParseVieshowMovie_EmptyPage(t *testing.T) {
	movie := parseVieshowMovie("<html><body></body></html>", "42")
	if movie.SourceID != "vieshow_42" {
		t.Errorf("unexpected source id %q", movie.SourceID)
	}
	if movie.Title != "" || movie.Duration != 0 || len(movie.Actors) != 0 {
		t.Errorf("expected empty fields, got %+v", movie)
	}
}

func TestSplitNameList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"plain list", "甲、乙、丙", []string{"甲", "乙", "丙"}},
		{"markup stripped", "<td><p>甲、乙</p>", []string{"甲", "乙"}},
		{"voice marker removed", "聲優甲(配音)、聲優乙(配音)", []string{"聲優甲", "聲優乙"}},
		{"empty", "", nil},
		{"whitespace entries dropped", "甲、 、乙", []string{"甲", "乙"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitNameList(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitNameList(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseVieshowShowtimes(t *testing.T) {
	theaters := map[string]model.Theater{
		"23": {SourceID: "vieshow_23", Name: "台北信義威秀影城"},
	}

	showtimes := parseVieshowShowtimes(movieDetailFixture, "vieshow_8173", theaters)

	// Session 90001 (IMAX) and 90002 (digital) resolve; 90003 references an
	// unknown theater, 90004 an article with no version entry, and the
	// sold-out slot has no session id.
	if len(showtimes) != 2 {
		t.Fatalf("expected 2 showtimes, got %d: %+v", len(showtimes), showtimes)
	}

	first := showtimes[0]
	if first.SourceID != "vieshow_90001" {
		t.Errorf("unexpected source id %q", first.SourceID)
	}
	if first.MovieID != "vieshow_8173" || first.TheaterID != "vieshow_23" {
		t.Errorf("unexpected references movie=%q theater=%q", first.MovieID, first.TheaterID)
	}
	if first.BookingURL != "https://sales.vscinemas.com.tw/VoucherTicketing/Login.aspx?txtSessionId=90001" {
		t.Errorf("unexpected booking url %q", first.BookingURL)
	}
	// 10:30 UTC+8 is 02:30 UTC.
	if first.Time != "2025-11-10T02:30:00Z" {
		t.Errorf("unexpected time %q", first.Time)
	}
	if first.ScreenType != model.ScreenIMAX {
		t.Errorf("unexpected screen type %q", first.ScreenType)
	}
	if first.Language != model.LangEnglish {
		t.Errorf("unexpected language %q", first.Language)
	}
	if first.Price != 0 {
		t.Errorf("expected zero price, got %v", first.Price)
	}

	second := showtimes[1]
	if second.SourceID != "vieshow_90002" || second.ScreenType != model.ScreenGeneral {
		t.Errorf("unexpected second showtime %+v", second)
	}
}

func TestParseVieshowShowtimes_NoTheaters(t *testing.T) {
	showtimes := parseVieshowShowtimes(movieDetailFixture, "vieshow_8173", map[string]model.Theater{})
	if len(showtimes) != 0 {
		t.Errorf("expected no showtimes without theaters, got %d", len(showtimes))
	}
}
