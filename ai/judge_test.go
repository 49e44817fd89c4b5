package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"goannotate/domain/annotation"
	"goannotate/domain/feedback"
	"goannotate/domain/trace"
)

func judgeServer(t *testing.T, verdict string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"choices": [{"message": {"content": %q}}]}`, verdict)
	}))
}

func rankingCase(t *testing.T) *annotation.TestCase {
	t.Helper()
	items := []feedback.InputItem{{Name: "answer", Description: "The answer"}}
	cfg, err := feedback.NewConfig(trace.KindStep, nil, feedback.RankingSpec(2), items, "{answer_0} {answer_1}", nil, nil)
	if err != nil {
		t.Fatalf("Config construction failed: %v", err)
	}

	raws := []trace.Object{
		trace.StepObject(trace.Step{ID: "s1"}),
		trace.StepObject(trace.Step{ID: "s2"}),
	}
	tc := annotation.NewRankingTestCase(*cfg, raws)
	inputs := []annotation.JudgeInput{
		annotation.NewJudgeInput(raws[0], []annotation.ItemValue{{Name: "answer", Value: "a"}}),
		annotation.NewJudgeInput(raws[1], []annotation.ItemValue{{Name: "answer", Value: "b"}}),
	}
	if err := tc.SetJudgeInputs(inputs); err != nil {
		t.Fatalf("SetJudgeInputs failed: %v", err)
	}
	return tc
}

func TestJudgeRankingVerdict(t *testing.T) {
	server := judgeServer(t, `{"skip": false, "comment": "b wins", "rankings": [1, 0]}`)
	defer server.Close()

	judge := NewJudge(Config{APIKey: "k", BaseURL: server.URL, Model: "gpt-4.1"})
	ann, err := judge.Judge(context.Background(), rankingCase(t))
	if err != nil {
		t.Fatalf("Judge failed: %v", err)
	}
	if ann.Skip {
		t.Error("Expected a non-skip annotation")
	}
	if !annotation.RankingsEqual(ann.Rankings, []int{1, 0}) {
		t.Errorf("Expected rankings [1 0], got %v", ann.Rankings)
	}
}

func TestJudgeRejectsMalformedRankings(t *testing.T) {
	server := judgeServer(t, `{"skip": false, "comment": "", "rankings": [0, 0]}`)
	defer server.Close()

	judge := NewJudge(Config{APIKey: "k", BaseURL: server.URL, Model: "gpt-4.1"})
	if _, err := judge.Judge(context.Background(), rankingCase(t)); err == nil {
		t.Error("Expected a hard error for a duplicate ranking index")
	}
}

func TestJudgeRejectsMalformedRankingsOnSkip(t *testing.T) {
	server := judgeServer(t, `{"skip": true, "comment": "not applicable", "rankings": [2, 3]}`)
	defer server.Close()

	judge := NewJudge(Config{APIKey: "k", BaseURL: server.URL, Model: "gpt-4.1"})
	if _, err := judge.Judge(context.Background(), rankingCase(t)); err == nil {
		t.Error("A malformed permutation must be a hard error even on a skip verdict")
	}
}

func TestJudgeSkipVerdictYieldsPlaceholder(t *testing.T) {
	server := judgeServer(t, `{"skip": true, "comment": "not applicable", "rankings": [0, 1]}`)
	defer server.Close()

	judge := NewJudge(Config{APIKey: "k", BaseURL: server.URL, Model: "gpt-4.1"})
	ann, err := judge.Judge(context.Background(), rankingCase(t))
	if err != nil {
		t.Fatalf("Judge failed: %v", err)
	}
	if !ann.Skip {
		t.Fatal("Expected a skip annotation")
	}
	if !annotation.RankingsEqual(ann.Rankings, []int{0, 1}) {
		t.Errorf("Skip placeholder must carry the identity permutation, got %v", ann.Rankings)
	}
	if ann.Comment == nil || *ann.Comment != "not applicable" {
		t.Errorf("Skip comment not carried: %v", ann.Comment)
	}
}
