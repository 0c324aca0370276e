package reddit

// Kind distinguishes posts from comments.
type Kind string

const (
	KindPost    Kind = "post"
	KindComment Kind = "comment"
)

// Item is one candidate post or comment offered to the matcher. Immutable
// once produced.
type Item struct {
	ID        string
	Kind      Kind
	Subreddit string
	Title     string
	Body      string
	Author    string
	Permalink string
}

// listing is the wire shape of a Reddit listing response.
type listing struct {
	Data struct {
		Children []struct {
			Kind string    `json:"kind"`
			Data childData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type childData struct {
	ID        string `json:"id"`
	Name      string `json:"name"` // fullname, e.g. t1_abc or t3_xyz
	Subreddit string `json:"subreddit"`
	Title     string `json:"title"`    // posts
	SelfText  string `json:"selftext"` // posts
	Body      string `json:"body"`     // comments
	Author    string `json:"author"`
	Permalink string `json:"permalink"`
}

func (l *listing) items() []Item {
	out := make([]Item, 0, len(l.Data.Children))
	for _, ch := range l.Data.Children {
		d := ch.Data
		it := Item{
			ID:        d.ID,
			Subreddit: d.Subreddit,
			Author:    d.Author,
			Permalink: d.Permalink,
		}
		switch ch.Kind {
		case "t1":
			it.Kind = KindComment
			it.Body = d.Body
		case "t3":
			it.Kind = KindPost
			it.Title = d.Title
			it.Body = d.SelfText
		default:
			continue
		}
		if it.ID == "" {
			continue
		}
		out = append(out, it)
	}
	return out
}
