package sequencer

import (
	"strings"

	"virtualcare/internal/catalog"
	"virtualcare/internal/media"
)

// Value is a confirmed answer value: Text, FileValue or FileList.
type Value interface {
	isValue()
	// Display renders the value for summaries and logs.
	Display() string
}

// Text is a string answer (text entry, choice, instruction sentinel).
type Text string

// FileValue is a single uploaded file.
type FileValue struct{ File *media.File }

// FileList is an ordered list of uploaded files. Empty means skipped.
type FileList []*media.File

func (Text) isValue()      {}
func (FileValue) isValue() {}
func (FileList) isValue()  {}

func (t Text) Display() string { return string(t) }

func (f FileValue) Display() string {
	if f.File == nil {
		return ""
	}
	return f.File.Name
}

func (l FileList) Display() string {
	if len(l) == 0 {
		return "(skipped)"
	}
	names := make([]string, 0, len(l))
	for _, f := range l {
		names = append(names, f.Name)
	}
	return strings.Join(names, ", ")
}

// Files returns the files carried by v in order; nil for Text.
func Files(v Value) []*media.File {
	switch v := v.(type) {
	case FileValue:
		if v.File == nil {
			return nil
		}
		return []*media.File{v.File}
	case FileList:
		return append([]*media.File(nil), v...)
	default:
		return nil
	}
}

// accepts reports whether a question kind takes values of v's shape.
func accepts(k catalog.Kind, v Value) bool {
	switch v.(type) {
	case Text:
		return !k.IsImage()
	case FileValue:
		return k == catalog.KindSingleImage
	case FileList:
		return k == catalog.KindMultiImage
	default:
		return false
	}
}
