package lang

import (
	"strings"
	"testing"
)

func TestParseCfgTestSpansModule(t *testing.T) {
	src := `fn add(a: i32, b: i32) -> i32 {
    a + b
}

#[cfg(test)]
mod tests {
    use super::*;

    #[test]
    fn adds() {
        assert_eq!(add(1, 2), 3);
    }
}
`
	spans := ParseCfgTestSpans(src)
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Start != 5 || spans[0].End != 13 {
		t.Errorf("span = %+v, want 5..13", spans[0])
	}
}

func TestParseCfgTestSpansWhitespaceTolerance(t *testing.T) {
	src := "  #  [ cfg ( test ) ]\n  mod tests {\n  }\n"
	spans := ParseCfgTestSpans(src)
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Start != 1 || spans[0].End != 3 {
		t.Errorf("span = %+v, want 1..3", spans[0])
	}
}

func TestParseCfgTestSpansNestedBracesAndStrings(t *testing.T) {
	src := `#[cfg(test)]
mod tests {
    #[test]
    fn tricky() {
        let s = "not a brace: } {";
        let c = '}';
        let block = { 1 + 2 };
        // a comment with }
        /* block comment } */
        assert_eq!(block, 3);
    }
}
fn after() {}
`
	spans := ParseCfgTestSpans(src)
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1: %+v", len(spans), spans)
	}
	if spans[0].Start != 1 || spans[0].End != 12 {
		t.Errorf("span = %+v, want 1..12", spans[0])
	}
	if spans[0].Contains(13) {
		t.Error("span should not swallow the following item")
	}
}

func TestParseCfgTestSpansFnItem(t *testing.T) {
	src := `#[cfg(test)]
#[allow(dead_code)]
fn helper_for_tests() {
    setup();
}
`
	spans := ParseCfgTestSpans(src)
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Start != 1 || spans[0].End != 5 {
		t.Errorf("span = %+v, want 1..5", spans[0])
	}
}

func TestParseCfgTestSpansOutOfLineModule(t *testing.T) {
	src := "#[cfg(test)]\nmod tests;\n\nfn real() {}\n"
	if spans := ParseCfgTestSpans(src); len(spans) != 0 {
		t.Errorf("out-of-line module should produce no span, got %+v", spans)
	}
}

func TestParseCfgTestSpansIgnoresOtherCfg(t *testing.T) {
	src := "#[cfg(feature = \"extra\")]\nmod extra {\n}\n"
	if spans := ParseCfgTestSpans(src); len(spans) != 0 {
		t.Errorf("non-test cfg matched: %+v", spans)
	}
}

func TestParseCfgTestSpansMultiple(t *testing.T) {
	var b strings.Builder
	b.WriteString("fn a() {}\n")
	b.WriteString("#[cfg(test)]\nmod t1 {\n    fn x() {}\n}\n")
	b.WriteString("fn b() {}\n")
	b.WriteString("#[cfg(test)]\nmod t2 {\n}\n")
	spans := ParseCfgTestSpans(b.String())
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2: %+v", len(spans), spans)
	}
}

// TestSpanLineAccounting pins the property behind cfg_test_mode = count:
// every non-blank line is either inside or outside a span, never both.
func TestSpanLineAccounting(t *testing.T) {
	src := `fn a() {}

#[cfg(test)]
mod tests {
    #[test]
    fn t() {}
}
`
	spans := ParseCfgTestSpans(src)
	if len(spans) != 1 {
		t.Fatalf("got %d spans", len(spans))
	}
	lines := strings.Split(src, "\n")
	inside, outside := 0, 0
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if spans[0].Contains(i + 1) {
			inside++
		} else {
			outside++
		}
	}
	if inside != 5 || outside != 1 {
		t.Errorf("inside=%d outside=%d, want 5/1", inside, outside)
	}
}
