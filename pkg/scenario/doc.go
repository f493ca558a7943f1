// Package scenario loads and runs scripted subscription scenarios.
//
// A scenario is a YAML file naming a set of subscription documents and a list
// of steps. Steps mount and unmount component instances, render them with a
// document and variables, and push events through an in-memory client. After
// every step the runner re-renders instances whose state changed and records
// a snapshot of each instance's subscription result.
//
// Example:
//
//	name: switch-variables
//	documents:
//	  item: "subscription OnItem($id: ID!) { item(id: $id) { id name } }"
//	steps:
//	  - mount: {instance: a}
//	  - render: {instance: a, document: item, variables: {id: 1}}
//	  - publish: {operation: OnItem, data: {id: 1, name: a}}
//	  - unmount: {instance: a}
package scenario
