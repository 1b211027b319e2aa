/*
Package abnf is a grammar driven pattern matcher.

Grammar ->
	grammar.New ->
Opcode IR (grammar) ->
	analyze ->
Rule Dependencies and Attributes (analyze) ->
	refuse cyclic, left recursive and infinite rules ->
Analyzed Grammar ->
	parse ->
Result, AST Log (ast), Stats

Compile does the first steps, parse.New takes the result.
*/
package abnf
