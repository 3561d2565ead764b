// Package i18n loads YAML message catalogs and turns them into key lookups.
//
// Catalog files are nested YAML maps; nesting is flattened into dotted keys,
// so auth: {resetPassword: {title: ...}} is looked up as
// "auth.resetPassword.title". Lookups fall back to the catalog's default
// locale and finally to the key itself.
package i18n
