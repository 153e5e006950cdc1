package notebook

// documentSchema is the JSON Schema every notebook document must satisfy,
// regardless of whether it arrived as JSON or YAML.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "notebook document",
  "type": "object",
  "required": ["name", "cells"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "cells": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "source"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "source": {"type": "string"},
          "after": {
            "type": "array",
            "items": {"type": "string", "minLength": 1}
          },
          "inputs": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name", "type"],
              "additionalProperties": false,
              "properties": {
                "name": {"type": "string", "minLength": 1},
                "type": {"type": "string", "minLength": 1},
                "implicit": {"type": "boolean"}
              }
            }
          }
        }
      }
    }
  }
}`
