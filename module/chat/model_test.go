package chat

import "testing"

func TestClassifyByExtension(t *testing.T) {
	cases := []struct {
		hint string
		want AttachmentKind
	}{
		{"photo.PNG", KindImage},
		{"scan.jpeg", KindImage},
		{"pic.jpg", KindImage},
		{"anim.gif", KindImage},
		{"clip.webm", KindAudio},
		{"song.mp3", KindAudio},
		{"note.wav", KindAudio},
		{"report.pdf", KindPdf},
		{"report.PDF", KindPdf},
		{"notes.docx", KindGenericFile},
		{"README", KindGenericFile},
		{"", KindGenericFile},
	}
	for _, c := range cases {
		if got := Classify(c.hint); got != c.want {
			t.Errorf("Classify(%q) = %v, want %v", c.hint, got, c.want)
		}
	}
}

func TestClassifyByDataURI(t *testing.T) {
	cases := []struct {
		hint string
		want AttachmentKind
	}{
		{"data:image/png;base64,iVBOR", KindImage},
		{"data:audio/webm;base64,AAAA", KindAudio},
		{"data:application/pdf;base64,JVBE", KindPdf},
		{"data:application/zip;base64,UEsD", KindGenericFile},
	}
	for _, c := range cases {
		if got := Classify(c.hint); got != c.want {
			t.Errorf("Classify(%q) = %v, want %v", c.hint, got, c.want)
		}
	}
}

func TestAttachmentKindPrefersFilename(t *testing.T) {
	att := &Attachment{Payload: "data:application/octet-stream;base64,AAAA", Filename: "photo.png"}
	if att.Kind() != KindImage {
		t.Fatalf("expected image, got %v", att.Kind())
	}

	var nilAtt *Attachment
	if nilAtt.Kind() != KindGenericFile {
		t.Fatal("nil attachment should classify as generic file")
	}
}
