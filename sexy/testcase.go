package sexy

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// InputFence is the fence language of a test's source program.
const InputFence = "taro"

// AssertionType represents the type of assertion code fence in a test
type AssertionType string

const (
	AssertionTypeAST          AssertionType = "ast"
	AssertionTypeTypes        AssertionType = "types"
	AssertionTypeWat          AssertionType = "wat"
	AssertionTypeCompileError AssertionType = "compile-error"
	// AssertionTypeExecute holds the exact output the program writes when
	// run.
	AssertionTypeExecute AssertionType = "execute"
)

// Assertion represents a single assertion in a test
type Assertion struct {
	Type    AssertionType
	Line    int    // line of the fence in the Markdown file
	Content string // raw fence content
	// Pattern is the parsed content of ast, types and wat fences.
	Pattern *Node
}

// TestCase represents a complete test case extracted from Markdown
type TestCase struct {
	Name       string // The test name from the heading (after "Test: ")
	Input      string // The program from the taro fence
	Assertions []Assertion
}

// ExtractTestCases parses a Markdown document and extracts its test cases.
// A test starts at a heading "Test: <name>" and holds one taro fence and at
// least one assertion fence.
func ExtractTestCases(markdownContent string) ([]TestCase, error) {
	md := goldmark.New()
	source := []byte(markdownContent)
	doc := md.Parser().Parse(text.NewReader(source))

	var testCases []TestCase
	var currentTestCase *TestCase

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			headingText := extractTextFromNode(n, source)
			if !strings.HasPrefix(headingText, "Test: ") {
				return ast.WalkContinue, nil
			}
			if currentTestCase != nil {
				if err := validateTestCase(currentTestCase); err != nil {
					return ast.WalkStop, err
				}
				testCases = append(testCases, *currentTestCase)
			}
			currentTestCase = &TestCase{Name: strings.TrimPrefix(headingText, "Test: ")}

		case *ast.FencedCodeBlock:
			language := string(n.Language(source))
			content := extractCodeBlockContent(n, source)
			lineNum := getLineNumber(n, source)

			if currentTestCase == nil {
				// Fences without a language are prose.
				if language == "" {
					return ast.WalkContinue, nil
				}
				if language == InputFence || isAssertionFence(language) {
					return ast.WalkStop, fmt.Errorf("line %d: %s fence found outside of test case", lineNum, language)
				}
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s' found outside of test case", lineNum, language)
			}

			switch {
			case language == "":
			case language == InputFence:
				if currentTestCase.Input != "" {
					return ast.WalkStop, fmt.Errorf("line %d: multiple input fences found in test '%s'", lineNum, currentTestCase.Name)
				}
				currentTestCase.Input = strings.TrimRight(content, "\n")
			case isAssertionFence(language):
				assertion := Assertion{
					Type:    AssertionType(language),
					Line:    lineNum,
					Content: strings.TrimRight(content, "\n"),
				}
				if hasPattern(assertion.Type) {
					pattern, err := Parse(assertion.Content)
					if err != nil {
						return ast.WalkStop, fmt.Errorf("line %d: failed to parse assertion in test '%s': %w", lineNum, currentTestCase.Name, err)
					}
					assertion.Pattern = pattern
				}
				currentTestCase.Assertions = append(currentTestCase.Assertions, assertion)
			default:
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s' in test '%s'", lineNum, language, currentTestCase.Name)
			}
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking markdown AST: %w", err)
	}

	if currentTestCase != nil {
		if err := validateTestCase(currentTestCase); err != nil {
			return nil, err
		}
		testCases = append(testCases, *currentTestCase)
	}
	return testCases, nil
}

// extractTextFromNode extracts plain text content from a markdown node
func extractTextFromNode(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if text, ok := n.(*ast.Text); ok {
				buf.Write(text.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func extractCodeBlockContent(codeBlock *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	for i := 0; i < codeBlock.Lines().Len(); i++ {
		line := codeBlock.Lines().At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

func isAssertionFence(language string) bool {
	switch AssertionType(language) {
	case AssertionTypeAST, AssertionTypeTypes, AssertionTypeWat, AssertionTypeCompileError, AssertionTypeExecute:
		return true
	}
	return false
}

func hasPattern(t AssertionType) bool {
	return t != AssertionTypeCompileError && t != AssertionTypeExecute
}

func validateTestCase(testCase *TestCase) error {
	if testCase.Input == "" {
		return fmt.Errorf("test '%s' has no input fence", testCase.Name)
	}
	if len(testCase.Assertions) == 0 {
		return fmt.Errorf("test '%s' has no assertion fences", testCase.Name)
	}
	return nil
}

// getLineNumber returns the line of the first content line of node.
func getLineNumber(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	startPos := node.Lines().At(0).Start
	return bytes.Count(source[:min(startPos, len(source))], []byte("\n")) + 1
}
