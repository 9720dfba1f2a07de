package browser

import "github.com/abdul-hamid-achik/pagespec/packages/core/parser"

// resolveJS evaluates a locator chain in the page. It mirrors the
// in-memory resolver in browsertest.
const resolveJS = `(ops) => {
  const norm = (s) => (s || "").replace(/\s+/g, " ").trim();
  const hasText = (el, t) => norm(el.innerText).includes(t) || norm(el.textContent).includes(t);
  const add = (out, el) => { if (!out.includes(el)) out.push(el); };
  let set = [];
  for (const op of ops) {
    switch (op.kind) {
    case "get":
      set = Array.from(document.querySelectorAll(op.arg));
      break;
    case "contains": {
      const t = norm(op.arg);
      const hit = set.find((el) => hasText(el, t));
      set = hit ? [hit] : [];
      break;
    }
    case "find": {
      const out = [];
      for (const el of set) for (const c of el.querySelectorAll(op.arg)) add(out, c);
      set = out;
      break;
    }
    case "parents": {
      const out = [];
      for (const el of set) {
        for (let p = el.parentElement; p; p = p.parentElement) {
          if (!op.arg || p.matches(op.arg)) add(out, p);
        }
      }
      set = out;
      break;
    }
    case "closest": {
      const out = [];
      for (const el of set) { const c = el.closest(op.arg); if (c) add(out, c); }
      set = out;
      break;
    }
    case "first":
      set = set.slice(0, 1);
      break;
    case "last":
      set = set.slice(-1);
      break;
    case "eq": {
      const i = op.index < 0 ? set.length + op.index : op.index;
      set = i >= 0 && i < set.length ? [set[i]] : [];
      break;
    }
    }
  }
  return set;
}`

type jsOp struct {
	Kind  string `json:"kind"`
	Arg   string `json:"arg"`
	Index int    `json:"index"`
}

func locatorOps(loc *parser.Locator) []jsOp {
	ops := make([]jsOp, len(loc.Ops))
	for i, op := range loc.Ops {
		ops[i] = jsOp{Kind: op.Kind.String(), Arg: op.Arg, Index: op.Index}
	}
	return ops
}
