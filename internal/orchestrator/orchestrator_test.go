package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"media-picker/internal/cache"
	"media-picker/internal/exifmeta"
	"media-picker/internal/extract"
	"media-picker/internal/mediatypes"
	"media-picker/internal/normalize"
	"media-picker/internal/pipeline"
	"media-picker/internal/query"
	"media-picker/internal/repository"
	"media-picker/internal/resolver"
	"media-picker/internal/workers"
)

type fakeItem struct {
	row     repository.Row
	data    []byte
	details repository.Details
}

type fakeRepo struct {
	items []fakeItem
}

func (f *fakeRepo) Scan(ctx context.Context, c repository.Collection, fn func(repository.Row) bool) error {
	for _, it := range f.items {
		if it.row.Collection == c && !fn(it.row) {
			return nil
		}
	}
	return nil
}

func (f *fakeRepo) find(ref repository.Reference) (fakeItem, bool) {
	for _, it := range f.items {
		if it.row.Ref == ref {
			return it, true
		}
	}
	return fakeItem{}, false
}

func (f *fakeRepo) Describe(ctx context.Context, ref repository.Reference) (repository.Details, error) {
	it, ok := f.find(ref)
	if !ok {
		return repository.Details{}, repository.ErrNotFound
	}
	return it.details, nil
}

func (f *fakeRepo) Open(ctx context.Context, ref repository.Reference) (io.ReadCloser, error) {
	it, ok := f.find(ref)
	if !ok || it.data == nil {
		return nil, repository.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(it.data)), nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func imageItem(t *testing.T, id int, takenMs int64, w, h int) fakeItem {
	return fakeItem{
		row: repository.Row{
			Ref:        repository.Reference{URI: fmt.Sprintf("content://media/external/images/media/%d", id)},
			Collection: repository.Images,
			Path:       fmt.Sprintf("/media/DCIM/%d.png", id),
			DateTaken:  takenMs,
		},
		data:    pngBytes(t, w, h),
		details: repository.Details{DisplayName: fmt.Sprintf("%d.png", id), MimeType: "image/png"},
	}
}

// threeImages holds images taken at T1 < T2 < T3.
func threeImages(t *testing.T) *fakeRepo {
	return &fakeRepo{items: []fakeItem{
		imageItem(t, 3, 3000, 30, 10),
		imageItem(t, 2, 2000, 20, 10),
		imageItem(t, 1, 1000, 10, 10),
	}}
}

type recordingIndicator struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingIndicator) Show() { r.add("show") }
func (r *recordingIndicator) Hide() { r.add("hide") }

func (r *recordingIndicator) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recordingIndicator) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fixture struct {
	orch   *Orchestrator
	picker *ChannelPicker
	busy   *recordingIndicator
	dir    string
}

func newFixture(t *testing.T, repo repository.Repository, granted ...Capability) *fixture {
	t.Helper()

	dir := t.TempDir()
	pool := workers.NewPool(2, 8)
	loop := NewLoop(16)
	t.Cleanup(func() {
		pool.Close()
		loop.Close()
	})

	f := &fixture{
		picker: NewChannelPicker(),
		busy:   &recordingIndicator{},
		dir:    dir,
	}
	f.orch = New(Config{
		Pool: pool,
		Loop: loop,
		Pipeline: pipeline.New(
			cache.New(repo, dir),
			resolver.NewWithSniffer(nil),
			normalize.New(nil),
			extract.New(dir),
		),
		Query:    query.New(repo),
		Picker:   f.picker,
		Busy:     f.busy,
		Tier:     extract.TierModern,
		CacheDir: dir,
		Granted:  granted,
	})
	return f
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func waitForSession(t *testing.T, p *ChannelPicker) Session {
	t.Helper()

	for i := 0; i < 200; i++ {
		if s, ok := p.Current(); ok {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("picker session never opened")
	return Session{}
}

func ref(id int) repository.Reference {
	return repository.Reference{URI: fmt.Sprintf("content://media/external/images/media/%d", id)}
}

func TestListRecentImages(t *testing.T) {
	f := newFixture(t, threeImages(t), CapReadImages, CapReadVideo)

	opts := ListOptions{MediaType: mediatypes.MediaImages, Limit: 2, Offset: 0}
	records, err := f.orch.GetLastMedias(testContext(t), "caller", opts, nil)
	if err != nil {
		t.Fatalf("GetLastMedias() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	for i, want := range []repository.Reference{ref(3), ref(2)} {
		rec := records[i]
		if rec.ID != cache.Hash(want) {
			t.Errorf("record %d is %s, want %s", i, rec.ID, cache.Hash(want))
		}
		if rec.Index != i {
			t.Errorf("record %d index = %d", i, rec.Index)
		}
		if rec.Width == nil || rec.Height == nil {
			t.Errorf("record %d has no dimensions", i)
		}
		if !strings.HasPrefix(rec.URI, "file://"+f.dir) {
			t.Errorf("record %d uri = %s, want cache-local", i, rec.URI)
		}
	}
	if *records[0].Width != 30 || *records[1].Width != 20 {
		t.Errorf("widths = %d, %d, want 30, 20", *records[0].Width, *records[1].Width)
	}
}

func TestListOrdinalsAreAbsolute(t *testing.T) {
	f := newFixture(t, threeImages(t), CapReadImages)

	opts := ListOptions{MediaType: mediatypes.MediaImages, Limit: 2, Offset: 1}
	records, err := f.orch.GetLastMedias(testContext(t), "caller", opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].Index != 1 || records[1].Index != 2 {
		t.Errorf("records = %+v, want indexes 1 and 2", records)
	}
	if !strings.HasSuffix(records[0].URI, "_1.png") {
		t.Errorf("uri = %s, want ordinal 1 in the cache name", records[0].URI)
	}
}

func TestListSuspendsForPermission(t *testing.T) {
	f := newFixture(t, threeImages(t))
	ctx := testContext(t)

	tokens := make(chan string, 1)
	type outcome struct {
		records []pipeline.MediaRecord
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		opts := ListOptions{MediaType: mediatypes.MediaImages, Limit: 3}
		records, err := f.orch.GetLastMedias(ctx, "caller", opts, func(token string) { tokens <- token })
		done <- outcome{records, err}
	}()

	token := <-tokens
	pending := f.orch.Pending()
	if len(pending) != 1 || pending[0].Token != token {
		t.Fatalf("Pending() = %+v, want token %s", pending, token)
	}
	if len(pending[0].Capabilities) != 1 || pending[0].Capabilities[0] != CapReadImages {
		t.Errorf("capabilities = %v, want [read_images]", pending[0].Capabilities)
	}

	if err := f.orch.ResolvePermission(token, true); err != nil {
		t.Fatalf("ResolvePermission() error = %v", err)
	}
	got := <-done
	if got.err != nil || len(got.records) != 3 {
		t.Fatalf("resumed run = %d records, %v", len(got.records), got.err)
	}

	if err := f.orch.ResolvePermission(token, true); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("second ResolvePermission() error = %v, want ErrUnknownToken", err)
	}
	if !f.orch.Granted(CapReadImages) {
		t.Error("grant was not remembered")
	}

	suspended := false
	_, err := f.orch.GetLastMedias(ctx, "caller", ListOptions{MediaType: mediatypes.MediaImages, Limit: 1}, func(string) { suspended = true })
	if err != nil || suspended {
		t.Errorf("second request suspended=%v err=%v, want direct processing", suspended, err)
	}
}

func TestListPermissionDenied(t *testing.T) {
	f := newFixture(t, threeImages(t))
	ctx := testContext(t)

	results := make(chan Result, 1)
	token := f.orch.ListRecentMedia(ctx, "caller", ListOptions{MediaType: mediatypes.MediaVideos, Limit: 1}, func(r Result) { results <- r })
	if token == "" {
		t.Fatal("ListRecentMedia() did not suspend")
	}

	if err := f.orch.ResolvePermission(token, false); err != nil {
		t.Fatal(err)
	}
	if r := <-results; !errors.Is(r.Err, ErrPermissionDenied) || r.Err.Error() != "Permission denied" {
		t.Errorf("result error = %v, want Permission denied", r.Err)
	}
	if f.orch.Granted(CapReadVideo) {
		t.Error("denial recorded as a grant")
	}
	if len(f.orch.Pending()) != 0 {
		t.Error("denied request still pending")
	}
}

func TestListItemErrorFailsRun(t *testing.T) {
	repo := threeImages(t)
	repo.items = append(repo.items, fakeItem{row: repository.Row{
		Ref:        repository.Reference{URI: "content://media/external/images/media/99"},
		Collection: repository.Images,
		DateTaken:  2500,
	}})
	f := newFixture(t, repo, CapReadImages)

	_, err := f.orch.GetLastMedias(testContext(t), "caller", ListOptions{MediaType: mediatypes.MediaImages, Limit: 3}, nil)
	if err == nil {
		t.Fatal("GetLastMedias() error = nil, want the error log")
	}
	if !strings.Contains(err.Error(), "Item 1 copy error") {
		t.Errorf("error = %q, want item 1 copy error", err)
	}
}

func TestPickMedia(t *testing.T) {
	f := newFixture(t, threeImages(t))
	ctx := testContext(t)

	type outcome struct {
		records []pipeline.MediaRecord
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		records, err := f.orch.GetMedias(ctx, PickOptions{SelectionLimit: 2, ShowLoader: true, MediaType: mediatypes.MediaImages})
		done <- outcome{records, err}
	}()

	session := waitForSession(t, f.picker)
	if session.Limit != 2 || session.MediaType != mediatypes.MediaImages {
		t.Errorf("session = %+v", session)
	}
	if len(session.Filters) != 1 || session.Filters[0] != "image/*" {
		t.Errorf("filters = %v, want [image/*]", session.Filters)
	}

	if err := f.picker.Complete([]repository.Reference{ref(1), ref(3), ref(2)}); err != nil {
		t.Fatal(err)
	}
	got := <-done
	if got.err != nil {
		t.Fatalf("GetMedias() error = %v", got.err)
	}
	if len(got.records) != 2 {
		t.Fatalf("got %d records, want the selection truncated to 2", len(got.records))
	}
	if got.records[0].ID != cache.Hash(ref(1)) || got.records[1].ID != cache.Hash(ref(3)) {
		t.Error("records are not in selection order")
	}

	// Show and Hide are posted before the result, so they have run.
	if ev := f.busy.Events(); fmt.Sprint(ev) != "[show hide]" {
		t.Errorf("indicator events = %v, want [show hide]", ev)
	}
}

func TestPickMediaBusyGuard(t *testing.T) {
	f := newFixture(t, threeImages(t))
	ctx := testContext(t)

	first := make(chan error, 1)
	go func() {
		_, err := f.orch.GetMedias(ctx, PickOptions{SelectionLimit: 3, MediaType: mediatypes.MediaAll})
		first <- err
	}()
	session := waitForSession(t, f.picker)

	_, err := f.orch.GetMedias(ctx, PickOptions{SelectionLimit: 1, ShowLoader: true, MediaType: mediatypes.MediaAll})
	if !errors.Is(err, ErrPickerOpen) || err.Error() != "Picker is already open" {
		t.Fatalf("second GetMedias() error = %v, want ErrPickerOpen", err)
	}

	still, ok := f.picker.Current()
	if !ok || still.ID != session.ID {
		t.Error("open session was disturbed")
	}
	if len(f.busy.Events()) != 0 {
		t.Errorf("busy call touched the indicator: %v", f.busy.Events())
	}

	if err := f.picker.Cancel(); err != nil {
		t.Fatal(err)
	}
	if err := <-first; err != nil {
		t.Errorf("cancelled GetMedias() error = %v", err)
	}
}

func TestPickMediaCancelIsEmptySuccess(t *testing.T) {
	f := newFixture(t, threeImages(t))
	ctx := testContext(t)

	done := make(chan Result, 1)
	f.orch.PickMedia(ctx, PickOptions{SelectionLimit: 3, MediaType: mediatypes.MediaAll}, func(r Result) { done <- r })
	waitForSession(t, f.picker)

	if err := f.picker.Cancel(); err != nil {
		t.Fatal(err)
	}
	r := <-done
	if r.Err != nil || r.Records == nil || len(r.Records) != 0 {
		t.Errorf("cancel result = %+v, want empty success", r)
	}

	if err := f.picker.Cancel(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Cancel() without session = %v, want ErrNoSession", err)
	}
}

func TestGetExifValidation(t *testing.T) {
	f := newFixture(t, &fakeRepo{})
	ctx := testContext(t)

	if _, err := f.orch.GetExifForKey(ctx, "", "Make"); !errors.Is(err, exifmeta.ErrURIRequired) {
		t.Errorf("GetExifForKey(no uri) error = %v", err)
	}
	if _, err := f.orch.GetExifForKey(ctx, "file://", "Make"); !errors.Is(err, exifmeta.ErrURIRequired) {
		t.Errorf("GetExifForKey(bare scheme) error = %v", err)
	}
	if _, err := f.orch.GetExifForKey(ctx, "file:///x.jpg", ""); !errors.Is(err, exifmeta.ErrKeyRequired) {
		t.Errorf("GetExifForKey(no key) error = %v", err)
	}
	if _, err := f.orch.GetExifAll(ctx, ""); !errors.Is(err, exifmeta.ErrURIRequired) {
		t.Errorf("GetExifAll(no uri) error = %v", err)
	}

	_, err := f.orch.GetExifForKey(ctx, "file://"+filepath.Join(f.dir, "missing.jpg"), "Make")
	if err == nil || !strings.HasPrefix(err.Error(), "Exif error: ") {
		t.Errorf("GetExifForKey(missing file) error = %v, want Exif error", err)
	}
}

func TestGetExifMissingTagIsNull(t *testing.T) {
	f := newFixture(t, &fakeRepo{})
	path := filepath.Join(f.dir, "plain.png")
	if err := os.WriteFile(path, pngBytes(t, 2, 2), 0o644); err != nil {
		t.Fatal(err)
	}

	value, err := f.orch.GetExifForKey(testContext(t), "file://"+path, "Make")
	if err != nil || value != nil {
		t.Errorf("GetExifForKey() = %v, %v, want nil, nil", value, err)
	}
}

func TestCapabilitiesFor(t *testing.T) {
	tests := []struct {
		tier extract.Tier
		mt   mediatypes.MediaType
		want string
	}{
		{extract.TierLegacy, mediatypes.MediaAll, "[read_storage]"},
		{extract.TierModern, mediatypes.MediaImages, "[read_images]"},
		{extract.TierModern, mediatypes.MediaVideos, "[read_video]"},
		{extract.TierModern, mediatypes.MediaAll, "[read_images read_video]"},
	}
	for _, tt := range tests {
		if got := fmt.Sprint(CapabilitiesFor(tt.tier, tt.mt)); got != tt.want {
			t.Errorf("CapabilitiesFor(%s, %s) = %s, want %s", tt.tier, tt.mt, got, tt.want)
		}
	}
}

func TestLoopOrder(t *testing.T) {
	l := NewLoop(4)

	var got []int
	for i := 0; i < 10; i++ {
		l.Post(func() { got = append(got, i) })
	}
	l.Close()

	if fmt.Sprint(got) != "[0 1 2 3 4 5 6 7 8 9]" {
		t.Errorf("loop order = %v", got)
	}

	ran := false
	l.Post(func() { ran = true })
	if !ran {
		t.Error("Post after Close did not run inline")
	}
}

// cancelAwareRepo fails scans whose context is already done.
type cancelAwareRepo struct {
	*fakeRepo
}

func (r cancelAwareRepo) Scan(ctx context.Context, c repository.Collection, fn func(repository.Row) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.fakeRepo.Scan(ctx, c, fn)
}

func TestListRunSurvivesCallerCancel(t *testing.T) {
	f := newFixture(t, cancelAwareRepo{threeImages(t)}, CapReadImages, CapReadVideo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan Result, 1)
	opts := ListOptions{MediaType: mediatypes.MediaImages, Limit: 3}
	if token := f.orch.ListRecentMedia(ctx, "caller", opts, func(r Result) { done <- r }); token != "" {
		t.Fatalf("ListRecentMedia() suspended with token %q", token)
	}

	select {
	case r := <-done:
		if r.Err != nil || len(r.Records) != 3 {
			t.Errorf("result = (%d records, %v), want 3 records", len(r.Records), r.Err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run never delivered")
	}
}

func TestGetExifRejectsFilesOutsideCache(t *testing.T) {
	f := newFixture(t, &fakeRepo{})
	ctx := testContext(t)

	outside := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(outside, []byte("not cached"), 0o644); err != nil {
		t.Fatal(err)
	}

	uris := []string{
		"file://" + outside,
		"file:///dev/zero",
		"file://" + filepath.Join(f.dir, "..", "photo.jpg"),
		"file://" + f.dir,
		"relative/photo.jpg",
	}
	for _, uri := range uris {
		_, err := f.orch.GetExifForKey(ctx, uri, "Make")
		if !errors.Is(err, ErrOutsideCache) || !strings.HasPrefix(err.Error(), "Exif error: ") {
			t.Errorf("GetExifForKey(%q) error = %v, want Exif error wrapping ErrOutsideCache", uri, err)
		}
		if _, err := f.orch.GetExifAll(ctx, uri); !errors.Is(err, ErrOutsideCache) {
			t.Errorf("GetExifAll(%q) error = %v, want ErrOutsideCache", uri, err)
		}
	}
}
