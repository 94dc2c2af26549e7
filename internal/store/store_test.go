package store

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCourseRoundTrip(t *testing.T) {
	s := openTestStore(t)

	created, err := s.CreateCourse("Operating Systems")
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	if created.ID == 0 {
		t.Error("course id not assigned")
	}

	got, err := s.GetCourse(created.ID)
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if got.Name != "Operating Systems" {
		t.Errorf("name = %q", got.Name)
	}

	if _, err := s.CreateCourse("Operating Systems"); err == nil {
		t.Error("duplicate course name should fail")
	}

	courses, err := s.ListCourses()
	if err != nil {
		t.Fatalf("ListCourses: %v", err)
	}
	if len(courses) != 1 {
		t.Errorf("expected 1 course, got %d", len(courses))
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := openTestStore(t)

	course, err := s.CreateCourse("Algorithms")
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}

	first, err := s.CreateSession(course.ID, "/data/algos/1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	second, err := s.CreateSession(course.ID, "/data/algos/2")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if first.SessionNumber != 1 || second.SessionNumber != 2 {
		t.Errorf("session numbers = %d, %d", first.SessionNumber, second.SessionNumber)
	}
	if first.ID == second.ID {
		t.Error("session ids collide")
	}
	if first.Status != "idle" {
		t.Errorf("initial status = %q", first.Status)
	}

	if err := s.UpdateSessionStatus(first.ID, "recording"); err != nil {
		t.Fatalf("UpdateSessionStatus: %v", err)
	}
	got, err := s.GetSession(first.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Status != "recording" {
		t.Errorf("status = %q", got.Status)
	}

	if err := s.UpdateSessionStatus("missing", "stopped"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	sessions, err := s.ListSessions(course.ID)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(sessions))
	}
}

func TestChunkPersistence(t *testing.T) {
	s := openTestStore(t)
	course, _ := s.CreateCourse("Networks")
	sess, _ := s.CreateSession(course.ID, "/data/net/1")

	for i := 0; i < 3; i++ {
		err := s.SaveChunk(ChunkRecord{
			SessionID:  sess.ID,
			ChunkIndex: i,
			Start:      float64(i * 60),
			End:        float64((i + 1) * 60),
			Status:     "transcribed",
			Text:       "chunk text",
			Confidence: 0.9,
		})
		if err != nil {
			t.Fatalf("SaveChunk %d: %v", i, err)
		}
	}

	// Duplicate index within the session is rejected.
	err := s.SaveChunk(ChunkRecord{SessionID: sess.ID, ChunkIndex: 1, Status: "transcribed", Text: "dup"})
	if err == nil {
		t.Error("duplicate chunk index should fail")
	}

	chunks, err := s.ChunksForSession(sess.ID)
	if err != nil {
		t.Fatalf("ChunksForSession: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Errorf("chunk order broken at %d: index %d", i, c.ChunkIndex)
		}
	}
}

func TestOutlineUpsert(t *testing.T) {
	s := openTestStore(t)
	course, _ := s.CreateCourse("Compilers")
	sess, _ := s.CreateSession(course.ID, "/data/comp/1")

	if err := s.SaveOutline(OutlineRecord{SessionID: sess.ID, FilePath: "a.md", OutlineJSON: `[{"title":"x"}]`}); err != nil {
		t.Fatalf("SaveOutline: %v", err)
	}
	if err := s.SaveOutline(OutlineRecord{SessionID: sess.ID, FilePath: "b.md", OutlineJSON: `[{"title":"y"}]`}); err != nil {
		t.Fatalf("SaveOutline upsert: %v", err)
	}

	got, err := s.OutlineForSession(sess.ID)
	if err != nil {
		t.Fatalf("OutlineForSession: %v", err)
	}
	if got.FilePath != "b.md" {
		t.Errorf("re-upload did not replace outline: %q", got.FilePath)
	}
}

func TestNoteLayerOverwritesWhole(t *testing.T) {
	s := openTestStore(t)
	course, _ := s.CreateCourse("Databases")
	sess, _ := s.CreateSession(course.ID, "/data/db/1")

	if err := s.SaveNoteLayer(NoteLayerRecord{SessionID: sess.ID, Layer: "merged", Markdown: "v1", FragmentsJSON: "[]"}); err != nil {
		t.Fatalf("SaveNoteLayer: %v", err)
	}
	if err := s.SaveNoteLayer(NoteLayerRecord{SessionID: sess.ID, Layer: "polished", Markdown: "p1", FragmentsJSON: "[]"}); err != nil {
		t.Fatalf("SaveNoteLayer: %v", err)
	}
	if err := s.SaveNoteLayer(NoteLayerRecord{SessionID: sess.ID, Layer: "polished", Markdown: "p2", FragmentsJSON: "[]"}); err != nil {
		t.Fatalf("SaveNoteLayer overwrite: %v", err)
	}

	merged, err := s.GetNoteLayer(sess.ID, "merged")
	if err != nil {
		t.Fatalf("GetNoteLayer: %v", err)
	}
	if merged.Markdown != "v1" {
		t.Errorf("merged layer disturbed by polish overwrite: %q", merged.Markdown)
	}

	polished, err := s.GetNoteLayer(sess.ID, "polished")
	if err != nil {
		t.Fatalf("GetNoteLayer: %v", err)
	}
	if polished.Markdown != "p2" {
		t.Errorf("polished layer = %q", polished.Markdown)
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	s := openTestStore(t)
	course, _ := s.CreateCourse("Graphics")
	sess, _ := s.CreateSession(course.ID, "/data/gfx/1")

	s.SaveChunk(ChunkRecord{SessionID: sess.ID, ChunkIndex: 0, Status: "transcribed", Text: "x"})
	s.SaveNoteLayer(NoteLayerRecord{SessionID: sess.ID, Layer: "live", Markdown: "m", FragmentsJSON: "[]"})
	s.SaveStudyArtifact(StudyArtifactRecord{SessionID: sess.ID, Kind: "guide", Content: "g"})

	if err := s.DeleteSession(sess.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}

	if _, err := s.GetSession(sess.ID); err == nil {
		t.Error("session still present after delete")
	}
	chunks, err := s.ChunksForSession(sess.ID)
	if err != nil {
		t.Fatalf("ChunksForSession: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("chunks not deleted: %d remain", len(chunks))
	}
}
