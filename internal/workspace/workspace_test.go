package workspace

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shellbench/shellbench/internal/ptyfile"
	"github.com/shellbench/shellbench/internal/screenstate"
	"github.com/shellbench/shellbench/internal/store"
	"github.com/shellbench/shellbench/internal/types"
)

func openTestWorkspace(t *testing.T) (*Workspace, *store.Store) {
	w, s, _ := openTestWorkspaceWithState(t)
	return w, s
}

func openTestWorkspaceWithState(t *testing.T) (*Workspace, *store.Store, screenstate.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.New(context.Background(), store.Config{DBPath: dbPath})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if _, err := s.Exec(context.Background(),
		"INSERT INTO remote (remoteid, remotetype, remotecanonicalname, connectmode, remoteidx, local, shellpref, sshconfigsrc) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		"local", "local", "local", "startup", 1, true, "detect", "manual"); err != nil {
		t.Fatalf("seed local remote: %v", err)
	}
	if _, err := s.Exec(context.Background(), "INSERT INTO client (clientid, userid) VALUES (?, ?)", "client1", "user1"); err != nil {
		t.Fatalf("seed client: %v", err)
	}

	screenState := screenstate.NewMemoryStore()
	t.Cleanup(func() { _ = screenState.Close() })
	return New(s, ptyfile.New(t.TempDir()), screenState), s, screenState
}

func TestInsertSessionWithNameCreatesInitialScreen(t *testing.T) {
	w, s := openTestWorkspace(t)
	ctx := context.Background()

	session, pkt, err := w.InsertSessionWithName(ctx, "", true)
	if err != nil {
		t.Fatalf("InsertSessionWithName: %v", err)
	}
	if session.Name == "" {
		t.Fatalf("expected a generated name")
	}
	if pkt.IsEmpty() {
		t.Fatalf("expected update packet")
	}

	var screenCount int
	if err := s.UnderlyingDB().QueryRow("SELECT COUNT(*) FROM screen WHERE sessionid = ?", session.Id).Scan(&screenCount); err != nil {
		t.Fatalf("count screens: %v", err)
	}
	if screenCount != 1 {
		t.Fatalf("screenCount = %d, want 1", screenCount)
	}

	var activeSessionId string
	if err := s.UnderlyingDB().QueryRow("SELECT activesessionid FROM client").Scan(&activeSessionId); err != nil {
		t.Fatalf("read activesessionid: %v", err)
	}
	if activeSessionId != session.Id {
		t.Fatalf("activesessionid = %q, want %q", activeSessionId, session.Id)
	}
}

func TestArchiveScreenRefusesLastScreen(t *testing.T) {
	w, _ := openTestWorkspace(t)
	ctx := context.Background()

	session, _, err := w.InsertSessionWithName(ctx, "sess", false)
	if err != nil {
		t.Fatalf("InsertSessionWithName: %v", err)
	}

	if _, err := w.ArchiveScreen(ctx, session.ActiveScreenId); err != ErrLastScreen {
		t.Fatalf("err = %v, want ErrLastScreen", err)
	}
}

func TestArchiveScreenAdvancesActiveScreen(t *testing.T) {
	w, s := openTestWorkspace(t)
	ctx := context.Background()

	session, _, err := w.InsertSessionWithName(ctx, "sess", true)
	if err != nil {
		t.Fatalf("InsertSessionWithName: %v", err)
	}
	screen2, _, err := w.InsertScreen(ctx, session.Id, "s2", types.ScreenOpts{}, "", true)
	if err != nil {
		t.Fatalf("InsertScreen: %v", err)
	}

	if _, err := w.ArchiveScreen(ctx, screen2.Id); err != nil {
		t.Fatalf("ArchiveScreen: %v", err)
	}

	var activeScreenId string
	if err := s.UnderlyingDB().QueryRow("SELECT activescreenid FROM session WHERE sessionid = ?", session.Id).Scan(&activeScreenId); err != nil {
		t.Fatalf("read activescreenid: %v", err)
	}
	if activeScreenId == screen2.Id {
		t.Fatalf("active screen should have moved off the archived screen")
	}
}

func TestDeleteScreenRefusesUnknownScreenId(t *testing.T) {
	w, _ := openTestWorkspace(t)
	ctx := context.Background()

	if _, err := w.DeleteScreen(ctx, "no-such-screen", false); err != ErrScreenNotFound {
		t.Fatalf("err = %v, want ErrScreenNotFound", err)
	}
}

func TestDeleteSessionCascadesAndTombstones(t *testing.T) {
	w, s := openTestWorkspace(t)
	ctx := context.Background()

	session, _, err := w.InsertSessionWithName(ctx, "sess", true)
	if err != nil {
		t.Fatalf("InsertSessionWithName: %v", err)
	}
	screenId := session.ActiveScreenId
	line := types.Line{ScreenId: screenId, LineId: "l1", LineType: types.LineTypeCmd}
	cmd := &types.Cmd{Status: types.StatusDone}
	if _, err := w.InsertLine(ctx, line, cmd); err != nil {
		t.Fatalf("InsertLine: %v", err)
	}

	if _, err := w.DeleteSession(ctx, session.Id); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}

	for table, col := range map[string]string{"session": "sessionid", "screen": "sessionid", "line": "screenid", "cmd": "screenid"} {
		var count int
		query := "SELECT count(*) FROM " + table + " WHERE " + col + " = ?"
		id := session.Id
		if table == "line" || table == "cmd" {
			id = string(screenId)
		}
		if err := s.UnderlyingDB().QueryRow(query, id).Scan(&count); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if count != 0 {
			t.Fatalf("%s still has %d row(s) referencing the deleted session/screen", table, count)
		}
	}

	var tombstoneName string
	if err := s.UnderlyingDB().QueryRow("SELECT name FROM session_tombstone WHERE sessionid = ?", session.Id).Scan(&tombstoneName); err != nil {
		t.Fatalf("read session_tombstone: %v", err)
	}
	if tombstoneName != "sess" {
		t.Fatalf("tombstone name = %q, want sess", tombstoneName)
	}
}

func TestInsertLineRejectsDuplicateLineId(t *testing.T) {
	w, _ := openTestWorkspace(t)
	ctx := context.Background()

	session, _, err := w.InsertSessionWithName(ctx, "sess", true)
	if err != nil {
		t.Fatalf("InsertSessionWithName: %v", err)
	}

	line1 := types.Line{ScreenId: session.ActiveScreenId, LineId: "l1", LineType: types.LineTypeText}
	if _, err := w.InsertLine(ctx, line1, nil); err != nil {
		t.Fatalf("InsertLine 1: %v", err)
	}
	line2 := types.Line{ScreenId: session.ActiveScreenId, LineId: "l2", LineType: types.LineTypeText}
	if _, err := w.InsertLine(ctx, line2, nil); err != nil {
		t.Fatalf("InsertLine 2: %v", err)
	}

	if _, err := w.InsertLine(ctx, line1, nil); err != ErrLineExists {
		t.Fatalf("err = %v, want ErrLineExists", err)
	}
}

func TestDeleteLinesByIdsRefusesRunningCmd(t *testing.T) {
	w, _ := openTestWorkspace(t)
	ctx := context.Background()

	session, _, err := w.InsertSessionWithName(ctx, "sess", true)
	if err != nil {
		t.Fatalf("InsertSessionWithName: %v", err)
	}

	line := types.Line{ScreenId: session.ActiveScreenId, LineId: "l1", LineType: types.LineTypeCmd}
	cmd := &types.Cmd{Status: types.StatusRunning}
	if _, err := w.InsertLine(ctx, line, cmd); err != nil {
		t.Fatalf("InsertLine: %v", err)
	}

	if _, err := w.DeleteLinesByIds(ctx, session.ActiveScreenId, []types.LineId{"l1"}); err != ErrCmdRunning {
		t.Fatalf("err = %v, want ErrCmdRunning", err)
	}

	if _, err := w.UpdateCmdDoneInfo(ctx, CmdKey{ScreenId: session.ActiveScreenId, LineId: "l1"}, DoneInfo{ExitCode: 0}, types.StatusDone); err != nil {
		t.Fatalf("UpdateCmdDoneInfo: %v", err)
	}

	if _, err := w.DeleteLinesByIds(ctx, session.ActiveScreenId, []types.LineId{"l1"}); err != nil {
		t.Fatalf("DeleteLinesByIds after done: %v", err)
	}
}

// makeWebShared flips screenId's sharemode to web with IsWebShare set, so
// mutators take their web-shared-only branches (persisted screenupdate log
// rows, pty:pos mirroring).
func makeWebShared(t *testing.T, s *store.Store, screenId types.ScreenId) {
	t.Helper()
	if _, err := s.Exec(context.Background(),
		`UPDATE screen SET sharemode = 'web', webshareopts = '{"iswebshare":true}' WHERE screenid = ?`, screenId); err != nil {
		t.Fatalf("makeWebShared: %v", err)
	}
}

func TestInsertLineIncrementsRunningCounter(t *testing.T) {
	w, _, ss := openTestWorkspaceWithState(t)
	ctx := context.Background()

	session, _, err := w.InsertSessionWithName(ctx, "sess", true)
	if err != nil {
		t.Fatalf("InsertSessionWithName: %v", err)
	}

	line := types.Line{ScreenId: session.ActiveScreenId, LineId: "l1", LineType: types.LineTypeCmd}
	cmd := &types.Cmd{Status: types.StatusRunning}
	if _, err := w.InsertLine(ctx, line, cmd); err != nil {
		t.Fatalf("InsertLine: %v", err)
	}

	flags, err := ss.Get(ctx, session.ActiveScreenId)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if flags.NumRunning != 1 {
		t.Fatalf("NumRunning = %d, want 1", flags.NumRunning)
	}
}

func TestUpdateCmdDoneInfoSetsIndicatorAndDecrementsRunning(t *testing.T) {
	w, _, ss := openTestWorkspaceWithState(t)
	ctx := context.Background()

	session, _, err := w.InsertSessionWithName(ctx, "sess", true)
	if err != nil {
		t.Fatalf("InsertSessionWithName: %v", err)
	}

	line := types.Line{ScreenId: session.ActiveScreenId, LineId: "l1", LineType: types.LineTypeCmd}
	cmd := &types.Cmd{Status: types.StatusRunning}
	if _, err := w.InsertLine(ctx, line, cmd); err != nil {
		t.Fatalf("InsertLine: %v", err)
	}

	if _, err := w.UpdateCmdDoneInfo(ctx, CmdKey{ScreenId: session.ActiveScreenId, LineId: "l1"}, DoneInfo{ExitCode: 1}, types.StatusError); err != nil {
		t.Fatalf("UpdateCmdDoneInfo: %v", err)
	}

	flags, err := ss.Get(ctx, session.ActiveScreenId)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if flags.NumRunning != 0 {
		t.Fatalf("NumRunning = %d, want 0", flags.NumRunning)
	}
	if flags.Indicator != types.IndicatorError {
		t.Fatalf("Indicator = %v, want %v", flags.Indicator, types.IndicatorError)
	}
}

func TestUpdateCmdDoneInfoSuccessSetsSuccessIndicator(t *testing.T) {
	w, _, ss := openTestWorkspaceWithState(t)
	ctx := context.Background()

	session, _, err := w.InsertSessionWithName(ctx, "sess", true)
	if err != nil {
		t.Fatalf("InsertSessionWithName: %v", err)
	}

	line := types.Line{ScreenId: session.ActiveScreenId, LineId: "l1", LineType: types.LineTypeCmd}
	cmd := &types.Cmd{Status: types.StatusRunning}
	if _, err := w.InsertLine(ctx, line, cmd); err != nil {
		t.Fatalf("InsertLine: %v", err)
	}

	if _, err := w.UpdateCmdDoneInfo(ctx, CmdKey{ScreenId: session.ActiveScreenId, LineId: "l1"}, DoneInfo{ExitCode: 0}, types.StatusDone); err != nil {
		t.Fatalf("UpdateCmdDoneInfo: %v", err)
	}

	flags, err := ss.Get(ctx, session.ActiveScreenId)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if flags.Indicator != types.IndicatorSuccess {
		t.Fatalf("Indicator = %v, want %v", flags.Indicator, types.IndicatorSuccess)
	}
}

func TestWebSharedMutatorsAppendScreenUpdateLogRows(t *testing.T) {
	w, s := openTestWorkspace(t)
	ctx := context.Background()

	session, _, err := w.InsertSessionWithName(ctx, "sess", true)
	if err != nil {
		t.Fatalf("InsertSessionWithName: %v", err)
	}
	makeWebShared(t, s, session.ActiveScreenId)

	line := types.Line{ScreenId: session.ActiveScreenId, LineId: "l1", LineType: types.LineTypeCmd}
	cmd := &types.Cmd{Status: types.StatusRunning}
	if _, err := w.InsertLine(ctx, line, cmd); err != nil {
		t.Fatalf("InsertLine: %v", err)
	}

	var newCount int
	if err := s.UnderlyingDB().QueryRow(
		"SELECT count(*) FROM screenupdate WHERE screenid = ? AND lineid = ? AND updatetype = ?",
		session.ActiveScreenId, "l1", types.SULineNew).Scan(&newCount); err != nil {
		t.Fatalf("count line:new rows: %v", err)
	}
	if newCount != 1 {
		t.Fatalf("line:new rows = %d, want 1", newCount)
	}

	if _, err := w.UpdateCmdDoneInfo(ctx, CmdKey{ScreenId: session.ActiveScreenId, LineId: "l1"}, DoneInfo{ExitCode: 0}, types.StatusDone); err != nil {
		t.Fatalf("UpdateCmdDoneInfo: %v", err)
	}
	var doneCount int
	if err := s.UnderlyingDB().QueryRow(
		"SELECT count(*) FROM screenupdate WHERE screenid = ? AND lineid = ? AND updatetype = ?",
		session.ActiveScreenId, "l1", types.SUCmdStatus).Scan(&doneCount); err != nil {
		t.Fatalf("count cmd:status rows: %v", err)
	}
	if doneCount != 1 {
		t.Fatalf("cmd:status rows = %d, want 1", doneCount)
	}

	if _, err := w.DeleteLinesByIds(ctx, session.ActiveScreenId, []types.LineId{"l1"}); err != nil {
		t.Fatalf("DeleteLinesByIds: %v", err)
	}
	var delCount int
	if err := s.UnderlyingDB().QueryRow(
		"SELECT count(*) FROM screenupdate WHERE screenid = ? AND lineid = ? AND updatetype = ?",
		session.ActiveScreenId, "l1", types.SULineDel).Scan(&delCount); err != nil {
		t.Fatalf("count line:del rows: %v", err)
	}
	if delCount != 1 {
		t.Fatalf("line:del rows = %d, want 1", delCount)
	}
	// the coalescing rule deletes the line:new row for the same line on delete
	if newCount, err := func() (int, error) {
		var c int
		err := s.UnderlyingDB().QueryRow(
			"SELECT count(*) FROM screenupdate WHERE screenid = ? AND lineid = ? AND updatetype = ?",
			session.ActiveScreenId, "l1", types.SULineNew).Scan(&c)
		return c, err
	}(); err != nil {
		t.Fatalf("recount line:new rows: %v", err)
	} else if newCount != 0 {
		t.Fatalf("line:new rows after delete = %d, want 0 (coalesced away)", newCount)
	}
}

func TestDeleteLinesByIdsFixesUpSelectedLineToClosestHigher(t *testing.T) {
	w, s := openTestWorkspace(t)
	ctx := context.Background()

	session, _, err := w.InsertSessionWithName(ctx, "sess", true)
	if err != nil {
		t.Fatalf("InsertSessionWithName: %v", err)
	}
	screenId := session.ActiveScreenId

	for _, id := range []types.LineId{"l1", "l2", "l3"} {
		line := types.Line{ScreenId: screenId, LineId: id, LineType: types.LineTypeText}
		if _, err := w.InsertLine(ctx, line, nil); err != nil {
			t.Fatalf("InsertLine %s: %v", id, err)
		}
	}
	// l1, l2, l3 got linenums 1, 2, 3. Select l2 (linenum 2), then delete it;
	// the closest higher survivor (l3, linenum 3) should become selected.
	if _, err := s.Exec(ctx, "UPDATE screen SET selectedline = 2 WHERE screenid = ?", screenId); err != nil {
		t.Fatalf("seed selectedline: %v", err)
	}

	if _, err := w.DeleteLinesByIds(ctx, screenId, []types.LineId{"l2"}); err != nil {
		t.Fatalf("DeleteLinesByIds: %v", err)
	}

	var selectedLine int
	if err := s.UnderlyingDB().QueryRow("SELECT selectedline FROM screen WHERE screenid = ?", screenId).Scan(&selectedLine); err != nil {
		t.Fatalf("read selectedline: %v", err)
	}
	if selectedLine != 3 {
		t.Fatalf("selectedline = %d, want 3 (closest surviving higher line)", selectedLine)
	}
}

func TestDeleteLinesByIdsFixesUpSelectedLineToClosestLowerWhenNoneHigher(t *testing.T) {
	w, s := openTestWorkspace(t)
	ctx := context.Background()

	session, _, err := w.InsertSessionWithName(ctx, "sess", true)
	if err != nil {
		t.Fatalf("InsertSessionWithName: %v", err)
	}
	screenId := session.ActiveScreenId

	for _, id := range []types.LineId{"l1", "l2"} {
		line := types.Line{ScreenId: screenId, LineId: id, LineType: types.LineTypeText}
		if _, err := w.InsertLine(ctx, line, nil); err != nil {
			t.Fatalf("InsertLine %s: %v", id, err)
		}
	}
	// l2 is the last line (linenum 2); deleting it leaves only l1 (linenum 1)
	// below the old selection, so selectedline should fall back to it.
	if _, err := s.Exec(ctx, "UPDATE screen SET selectedline = 2 WHERE screenid = ?", screenId); err != nil {
		t.Fatalf("seed selectedline: %v", err)
	}

	if _, err := w.DeleteLinesByIds(ctx, screenId, []types.LineId{"l2"}); err != nil {
		t.Fatalf("DeleteLinesByIds: %v", err)
	}

	var selectedLine int
	if err := s.UnderlyingDB().QueryRow("SELECT selectedline FROM screen WHERE screenid = ?", screenId).Scan(&selectedLine); err != nil {
		t.Fatalf("read selectedline: %v", err)
	}
	if selectedLine != 1 {
		t.Fatalf("selectedline = %d, want 1 (closest surviving lower line)", selectedLine)
	}
}

func TestDeleteLinesByIdsFixesUpSelectedLineToZeroWhenScreenEmptied(t *testing.T) {
	w, s := openTestWorkspace(t)
	ctx := context.Background()

	session, _, err := w.InsertSessionWithName(ctx, "sess", true)
	if err != nil {
		t.Fatalf("InsertSessionWithName: %v", err)
	}
	screenId := session.ActiveScreenId

	line := types.Line{ScreenId: screenId, LineId: "l1", LineType: types.LineTypeText}
	if _, err := w.InsertLine(ctx, line, nil); err != nil {
		t.Fatalf("InsertLine: %v", err)
	}
	if _, err := s.Exec(ctx, "UPDATE screen SET selectedline = 1 WHERE screenid = ?", screenId); err != nil {
		t.Fatalf("seed selectedline: %v", err)
	}

	if _, err := w.DeleteLinesByIds(ctx, screenId, []types.LineId{"l1"}); err != nil {
		t.Fatalf("DeleteLinesByIds: %v", err)
	}

	var selectedLine int
	if err := s.UnderlyingDB().QueryRow("SELECT selectedline FROM screen WHERE screenid = ?", screenId).Scan(&selectedLine); err != nil {
		t.Fatalf("read selectedline: %v", err)
	}
	if selectedLine != 0 {
		t.Fatalf("selectedline = %d, want 0 (screen now empty)", selectedLine)
	}
}

func TestArchiveSessionClearsAndRedensesSessionIdx(t *testing.T) {
	w, s := openTestWorkspace(t)
	ctx := context.Background()

	sess1, _, err := w.InsertSessionWithName(ctx, "sess1", false)
	if err != nil {
		t.Fatalf("InsertSessionWithName 1: %v", err)
	}
	sess2, _, err := w.InsertSessionWithName(ctx, "sess2", false)
	if err != nil {
		t.Fatalf("InsertSessionWithName 2: %v", err)
	}
	sess3, _, err := w.InsertSessionWithName(ctx, "sess3", true)
	if err != nil {
		t.Fatalf("InsertSessionWithName 3: %v", err)
	}

	if _, err := w.ArchiveSession(ctx, sess2.Id); err != nil {
		t.Fatalf("ArchiveSession: %v", err)
	}

	var archivedIdx int
	if err := s.UnderlyingDB().QueryRow("SELECT sessionidx FROM session WHERE sessionid = ?", sess2.Id).Scan(&archivedIdx); err != nil {
		t.Fatalf("read archived sessionidx: %v", err)
	}
	if archivedIdx != 0 {
		t.Fatalf("archived session sessionidx = %d, want 0", archivedIdx)
	}

	var idx1, idx3 int
	if err := s.UnderlyingDB().QueryRow("SELECT sessionidx FROM session WHERE sessionid = ?", sess1.Id).Scan(&idx1); err != nil {
		t.Fatalf("read sess1 sessionidx: %v", err)
	}
	if err := s.UnderlyingDB().QueryRow("SELECT sessionidx FROM session WHERE sessionid = ?", sess3.Id).Scan(&idx3); err != nil {
		t.Fatalf("read sess3 sessionidx: %v", err)
	}
	if idx1 != 1 || idx3 != 2 {
		t.Fatalf("non-archived sessionidx = %d, %d, want a dense 1, 2 sequence", idx1, idx3)
	}
}

func TestUnArchiveSessionAssignsTrailingSessionIdx(t *testing.T) {
	w, s := openTestWorkspace(t)
	ctx := context.Background()

	sess1, _, err := w.InsertSessionWithName(ctx, "sess1", false)
	if err != nil {
		t.Fatalf("InsertSessionWithName 1: %v", err)
	}
	sess2, _, err := w.InsertSessionWithName(ctx, "sess2", true)
	if err != nil {
		t.Fatalf("InsertSessionWithName 2: %v", err)
	}

	if _, err := w.ArchiveSession(ctx, sess1.Id); err != nil {
		t.Fatalf("ArchiveSession: %v", err)
	}
	if _, err := w.UnArchiveSession(ctx, sess1.Id); err != nil {
		t.Fatalf("UnArchiveSession: %v", err)
	}

	var idx1, idx2 int
	if err := s.UnderlyingDB().QueryRow("SELECT sessionidx FROM session WHERE sessionid = ?", sess1.Id).Scan(&idx1); err != nil {
		t.Fatalf("read sess1 sessionidx: %v", err)
	}
	if err := s.UnderlyingDB().QueryRow("SELECT sessionidx FROM session WHERE sessionid = ?", sess2.Id).Scan(&idx2); err != nil {
		t.Fatalf("read sess2 sessionidx: %v", err)
	}
	if idx1 <= idx2 {
		t.Fatalf("unarchived session idx = %d, want greater than still-active session idx %d", idx1, idx2)
	}
}

func TestDeleteSessionRedensesRemainingSessionIdx(t *testing.T) {
	w, s := openTestWorkspace(t)
	ctx := context.Background()

	sess1, _, err := w.InsertSessionWithName(ctx, "sess1", false)
	if err != nil {
		t.Fatalf("InsertSessionWithName 1: %v", err)
	}
	sess2, _, err := w.InsertSessionWithName(ctx, "sess2", false)
	if err != nil {
		t.Fatalf("InsertSessionWithName 2: %v", err)
	}
	sess3, _, err := w.InsertSessionWithName(ctx, "sess3", true)
	if err != nil {
		t.Fatalf("InsertSessionWithName 3: %v", err)
	}

	if _, err := w.DeleteSession(ctx, sess2.Id); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}

	var idx1, idx3 int
	if err := s.UnderlyingDB().QueryRow("SELECT sessionidx FROM session WHERE sessionid = ?", sess1.Id).Scan(&idx1); err != nil {
		t.Fatalf("read sess1 sessionidx: %v", err)
	}
	if err := s.UnderlyingDB().QueryRow("SELECT sessionidx FROM session WHERE sessionid = ?", sess3.Id).Scan(&idx3); err != nil {
		t.Fatalf("read sess3 sessionidx: %v", err)
	}
	if idx1 != 1 || idx3 != 2 {
		t.Fatalf("sessionidx after delete = %d, %d, want a dense 1, 2 sequence", idx1, idx3)
	}
}
