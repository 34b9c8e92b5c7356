package dedup

// TitleWindow is a bounded ring of recent titles for one (language, category)
// scope. Newest titles come first. Not safe for concurrent use; a run owns its
// window and touches it from one goroutine.
type TitleWindow struct {
	buf   []string
	norm  []string
	start int // index of the newest entry
	n     int
}

func NewTitleWindow(size int) *TitleWindow {
	if size < 1 {
		size = 1
	}
	return &TitleWindow{buf: make([]string, size), norm: make([]string, size)}
}

// Seed fills the window from titles ordered newest first, as the store
// returns them. Titles beyond capacity are ignored.
func (w *TitleWindow) Seed(newestFirst []string) {
	for i := len(newestFirst) - 1; i >= 0; i-- {
		w.Prepend(newestFirst[i])
	}
}

// Prepend adds title as the newest entry, evicting the oldest when full.
func (w *TitleWindow) Prepend(title string) {
	size := len(w.buf)
	w.start = (w.start - 1 + size) % size
	w.buf[w.start] = title
	w.norm[w.start] = NormalizeTitle(title)
	if w.n < size {
		w.n++
	}
}

// Titles returns a copy of the window, newest first.
func (w *TitleWindow) Titles() []string {
	out := make([]string, w.n)
	for i := 0; i < w.n; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

// ContainsNormalized reports whether a title equal to title after
// normalization is already in the window.
func (w *TitleWindow) ContainsNormalized(title string) bool {
	key := NormalizeTitle(title)
	if key == "" {
		return false
	}
	for i := 0; i < w.n; i++ {
		if w.norm[(w.start+i)%len(w.norm)] == key {
			return true
		}
	}
	return false
}

func (w *TitleWindow) Len() int { return w.n }
