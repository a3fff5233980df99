package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/domain"
	"github.com/kiimleo/pesticide-monitor-sub000/internal/workflow"
)

var errCancelled = errors.New("cancelled")

func runVerify(cmd *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}

	sess := workflow.NewSession(client, client, logger.Named("workflow"))
	defer sess.Close()

	doc := domain.Document{Name: filepath.Base(args[0]), Content: content}
	err = drive(cmd.Context(), sess, doc, bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout())
	if errors.Is(err, errCancelled) {
		fmt.Fprintln(cmd.OutOrStdout(), "취소되었습니다.")
		return nil
	}
	return err
}

// drive uploads doc and answers each dialog state from in until the session
// settles on a result, a cancellation or an unretried failure.
func drive(ctx context.Context, sess *workflow.Session, doc domain.Document, in *bufio.Reader, out io.Writer) error {
	if err := sess.Dispatch(ctx, workflow.Upload{Document: doc}); err != nil {
		return err
	}
	for {
		snap, err := sess.Await(ctx)
		if err != nil {
			return err
		}

		var next workflow.Event
		switch st := snap.State.(type) {
		case workflow.Success:
			printResult(out, st.Result)
			return nil

		case workflow.DuplicateFound:
			fmt.Fprintln(out, st.Message)
			if !confirm(in, out, "기존 성적서를 덮어쓰시겠습니까?") {
				_ = sess.Dispatch(ctx, workflow.CancelDuplicate{})
				return errCancelled
			}
			next = workflow.Overwrite{}

		case workflow.FoodAmbiguous:
			next, err = chooseFood(ctx, sess, st, in, out)
			if err != nil {
				return err
			}
			if _, ok := next.(workflow.CancelFoodSelection); ok {
				_ = sess.Dispatch(ctx, next)
				return errCancelled
			}

		case workflow.VerificationConfirmPending:
			fmt.Fprintf(out, "식품명 %q 없이 농약명과 성적서 기재 기준값만으로 검증합니다.\n", st.ParsedFood)
			if !confirm(in, out, "계속하시겠습니까?") {
				_ = sess.Dispatch(ctx, workflow.CancelSkipValidation{})
				return errCancelled
			}
			next = workflow.ConfirmSkipValidation{}

		case workflow.Failed:
			fmt.Fprintln(out, "오류:", st.Message)
			if !confirm(in, out, "다시 시도하시겠습니까?") {
				return fmt.Errorf("%s: %s", st.Kind, st.Message)
			}
			next = workflow.Retry{}

		default:
			return errCancelled
		}

		if err := sess.Dispatch(ctx, next); err != nil {
			return err
		}
	}
}

// chooseFood prompts until the user picks a candidate, declares that none
// fits, or cancels. "/query" replaces the candidates with search results.
func chooseFood(ctx context.Context, sess *workflow.Session, st workflow.FoodAmbiguous, in *bufio.Reader, out io.Writer) (workflow.Event, error) {
	candidates := st.SimilarFoods
	fmt.Fprintf(out, "성적서의 식품명 %q 을(를) 기준 목록에서 찾을 수 없습니다.\n", st.ParsedFood)
	for {
		for i, f := range candidates {
			fmt.Fprintf(out, "  %d) %s\n", i+1, f)
		}
		fmt.Fprint(out, "번호 선택, /검색어, n=해당 식품 없음, 빈 입력=취소: ")
		line := readLine(in)

		switch {
		case line == "":
			return workflow.CancelFoodSelection{}, nil
		case line == "n" || line == "N":
			return workflow.DeclareNoSimilarFood{}, nil
		case strings.HasPrefix(line, "/"):
			found, err := sess.SearchFoods(ctx, strings.TrimSpace(line[1:]))
			if err != nil {
				fmt.Fprintln(out, "검색 실패:", err)
				continue
			}
			if len(found) == 0 {
				fmt.Fprintln(out, "검색 결과가 없습니다.")
				continue
			}
			candidates = found
		default:
			n, err := strconv.Atoi(line)
			if err != nil || n < 1 || n > len(candidates) {
				fmt.Fprintln(out, "목록의 번호를 입력해 주세요.")
				continue
			}
			return workflow.SelectFood{Food: candidates[n-1]}, nil
		}
	}
}

func confirm(in *bufio.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	switch strings.ToLower(readLine(in)) {
	case "y", "yes":
		return true
	}
	return false
}

// readLine returns the next trimmed input line; EOF reads as empty.
func readLine(in *bufio.Reader) string {
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func printResult(out io.Writer, res domain.VerificationResult) {
	sum := res.Summary
	fmt.Fprintf(out, "성적서 번호: %s\n", res.ParsingResult.CertificateNumber)
	if res.Food != "" {
		fmt.Fprintf(out, "식품: %s\n", res.Food)
	}
	switch sum.Outcome {
	case domain.OutcomeConsistent:
		fmt.Fprintln(out, "결과: 성적서 판정이 기준과 일치합니다.")
	case domain.OutcomeInconsistent:
		fmt.Fprintf(out, "결과: 판정 불일치 %d건\n", sum.MismatchCount)
	default:
		fmt.Fprintln(out, "결과: 검출된 농약이 없습니다.")
	}
	if len(res.VerificationResult) == 0 {
		return
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "농약\t검출량\t기재 기준\t판정\t결과")
	findings := res.ParsingResult.Findings
	for i, v := range res.VerificationResult {
		var f domain.ExtractedFinding
		if i < len(findings) {
			f = findings[i]
		}
		limit := "-"
		if f.RecordedLimitText != nil {
			limit = *f.RecordedLimitText
		}
		pass := "적합"
		if !v.FinalPass {
			pass = "확인 필요"
		}
		fmt.Fprintf(tw, "%s\t%g\t%s\t%s\t%s\n",
			f.RecordedPesticideName, f.DetectionValue, limit, v.ComputedVerdict, pass)
	}
	_ = tw.Flush()
}
