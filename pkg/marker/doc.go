// Package marker parses PEP 508 dependency specifications and evaluates
// their environment markers.
//
// # Overview
//
// PyPI publishes a project's runtime requirements as requires_dist strings:
//
//	packaging
//	typing-extensions>=3.6.4; python_version < "3.8"
//	pytest!=8.1.*,>=6; extra == "test"
//	SecretStorage>=3.2; sys_platform == "linux"
//
// [ParseRequirement] splits such a string into name, extras, version
// specifier or URL, and a marker expression. The marker is a boolean tree
// where "and" binds tighter than "or", both are left associative, and
// parentheses override precedence, exactly as in the PEP 508 grammar.
//
// # Evaluation
//
// A [Requirement] applies to a build when its marker evaluates to true in
// the run's [Environment]. The environment is fixed for one run: the target
// interpreter's major.minor version, Linux/CPython platform values, and
// extra bound to "none" so that optional extras never pull in dependencies.
//
//	env := marker.NewEnvironment("3.11")
//	req, err := marker.ParseRequirement(`importlib-metadata>=4.11.4; python_version < "3.12"`)
//	if err != nil {
//	    return err // *SyntaxError, skip this edge
//	}
//	if req.Applies(env) {
//	    deps = append(deps, req.Name)
//	}
//
// Version comparisons (<, <=, >, >=, ==, !=, ~=) between version-like
// operands use semantic-version range containment; ~= and ==X.* are
// expanded into half-open ranges. Operands that are not versions compare as
// plain strings, and "in" / "not in" test substring containment.
package marker
