package collector

import (
	"context"
	"testing"
)

func TestNewCollectorModes(t *testing.T) {
	if _, err := NewCollector(Options{Mode: "bogus"}); err == nil {
		t.Error("expected error for unknown mode")
	}

	c, err := NewCollector(Options{Mode: "mock"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*MockClient); !ok {
		t.Errorf("mock mode returned %T", c)
	}

	c, err = NewCollector(testOptions())
	if err != nil {
		t.Fatal(err)
	}
	r, ok := c.(*Router)
	if !ok {
		t.Fatalf("live mode returned %T", c)
	}
	if _, ok := r.reddit.(*PublicClient); !ok {
		t.Errorf("without credentials reddit should use the public client, got %T", r.reddit)
	}
}

func TestRouterRoute(t *testing.T) {
	c, err := NewCollector(testOptions())
	if err != nil {
		t.Fatal(err)
	}
	r := c.(*Router)

	cases := []struct {
		url  string
		want string
	}{
		{"https://www.reddit.com/user/alice", "reddit"},
		{"https://blog.example.com/feed", "feed"},
		{"https://blog.example.com/index.xml", "feed"},
		{"https://www.example.com/feeds/posts/default", "feed"},
		{"https://www.haijiao.com/homepage/last/12345", "html"},
	}
	for _, tc := range cases {
		var got string
		switch r.route(tc.url).(type) {
		case *PublicClient, *APIClient:
			got = "reddit"
		case *FeedClient:
			got = "feed"
		case *HTMLClient:
			got = "html"
		}
		if got != tc.want {
			t.Errorf("route(%q) = %s, want %s", tc.url, got, tc.want)
		}
	}
}

func TestMockClientStableLinks(t *testing.T) {
	mc := NewMockClient(testOptions())
	a, err := mc.FetchProfile(context.Background(), "https://site/u/1/", 3)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := mc.FetchProfile(context.Background(), "https://site/u/1", 3)
	if len(a.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(a.Items))
	}
	for i := range a.Items {
		if a.Items[i].Link != b.Items[i].Link {
			t.Errorf("mock links not stable: %s vs %s", a.Items[i].Link, b.Items[i].Link)
		}
	}
	if a.Items[0].Link != "https://site/u/1/post/1" {
		t.Errorf("unexpected link %s", a.Items[0].Link)
	}
}
