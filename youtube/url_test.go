package youtube

import (
	"testing"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   ContentReference
		wantOK bool
	}{
		{"short link", "https://youtu.be/abc123", ContentReference{KindVideo, "abc123"}, true},
		{"short link with query", "https://youtu.be/abc123?t=42", ContentReference{KindVideo, "abc123"}, true},
		{"short link no id", "https://youtu.be/", ContentReference{}, false},
		{"watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", ContentReference{KindVideo, "dQw4w9WgXcQ"}, true},
		{"watch with list", "https://www.youtube.com/watch?v=xyz&list=PL1", ContentReference{KindPlaylist, "PL1"}, true},
		{"watch blank list", "https://www.youtube.com/watch?v=xyz&list=", ContentReference{KindVideo, "xyz"}, true},
		{"watch missing v", "https://www.youtube.com/watch?feature=share", ContentReference{}, false},
		{"watch blank v", "https://www.youtube.com/watch?v=", ContentReference{}, false},
		{"playlist", "https://www.youtube.com/playlist?list=PLabc", ContentReference{KindPlaylist, "PLabc"}, true},
		{"playlist without list", "https://www.youtube.com/playlist", ContentReference{}, false},
		{"shorts", "https://youtube.com/shorts/short1", ContentReference{KindVideo, "short1"}, true},
		{"embed", "https://www.youtube.com/embed/emb1?autoplay=1", ContentReference{KindVideo, "emb1"}, true},
		{"live", "https://www.youtube.com/live/live1", ContentReference{KindVideo, "live1"}, true},
		{"shorts missing id", "https://www.youtube.com/shorts/", ContentReference{}, false},
		{"channel", "https://www.youtube.com/channel/UCabc/videos", ContentReference{KindChannel, "UCabc"}, true},
		{"channel missing id", "https://www.youtube.com/channel", ContentReference{}, false},
		{"custom name", "https://www.youtube.com/c/SesameStreet", ContentReference{KindChannelCustomName, "SesameStreet"}, true},
		{"handle", "https://www.youtube.com/@somekid", ContentReference{KindChannelHandle, "somekid"}, true},
		{"handle with tab", "https://www.youtube.com/@somekid/videos", ContentReference{KindChannelHandle, "somekid"}, true},
		{"bare at", "https://www.youtube.com/@", ContentReference{}, false},
		{"mobile host", "https://m.youtube.com/watch?v=mob1", ContentReference{KindVideo, "mob1"}, true},
		{"upper case host", "HTTPS://WWW.YOUTUBE.COM/watch?v=up1", ContentReference{KindVideo, "up1"}, true},
		{"surrounding space", "  https://youtu.be/sp1  ", ContentReference{KindVideo, "sp1"}, true},
		{"encoded query", "https://www.youtube.com/watch?v=a%2Db", ContentReference{KindVideo, "a-b"}, true},
		{"pair without equals dropped", "https://www.youtube.com/watch?flag&v=ok1", ContentReference{KindVideo, "ok1"}, true},
		{"not a url", "not a url", ContentReference{}, false},
		{"blank", "   ", ContentReference{}, false},
		{"foreign host", "https://vimeo.com/watch?v=abc", ContentReference{}, false},
		{"lookalike host", "https://youtube.com.evil.example/watch?v=abc", ContentReference{}, false},
		{"root path", "https://www.youtube.com/", ContentReference{}, false},
		{"unknown segment", "https://www.youtube.com/feed/subscriptions", ContentReference{}, false},
		{"malformed", "https://www.youtube.com/%zz", ContentReference{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseURL(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ParseURL(%q) ok = %v, want %v (got %+v)", tt.raw, ok, tt.wantOK, got)
			}
			if got != tt.want {
				t.Errorf("ParseURL(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestContentReferenceURL(t *testing.T) {
	tests := []struct {
		ref  ContentReference
		want string
	}{
		{ContentReference{KindVideo, "abc"}, "https://www.youtube.com/watch?v=abc"},
		{ContentReference{KindChannel, "UC1"}, "https://www.youtube.com/channel/UC1"},
		{ContentReference{KindChannelHandle, "kid"}, "https://www.youtube.com/@kid"},
		{ContentReference{KindChannelCustomName, "Name"}, "https://www.youtube.com/c/Name"},
		{ContentReference{KindPlaylist, "PL1"}, "https://www.youtube.com/playlist?list=PL1"},
	}

	for _, tt := range tests {
		if got := tt.ref.URL(); got != tt.want {
			t.Errorf("%v.URL() = %q, want %q", tt.ref, got, tt.want)
		}
		// Canonical URLs parse back to the same reference.
		if back, ok := ParseURL(tt.ref.URL()); !ok || back != tt.ref {
			t.Errorf("ParseURL(%q) = %+v, %v", tt.ref.URL(), back, ok)
		}
	}
}

func TestContentKindRoundTrip(t *testing.T) {
	for _, k := range []ContentKind{KindVideo, KindChannel, KindChannelHandle, KindChannelCustomName, KindPlaylist} {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := ParseKind("podcast"); ok {
		t.Error("ParseKind should reject unknown kinds")
	}
}
