package models

import "encoding/json"

// StateSchema describes AppState to the completion backend. It is sent
// unchanged with every mutation request.
var StateSchema = json.RawMessage(`{
  "tasks": {
    "type": "array",
    "items": {
      "type": "object",
      "props": {
        "id": { "type": "number" },
        "text": { "type": "string" },
        "icon": { "type": "string", "comment": "emoji or ascii character" },
        "completed": { "type": "boolean" },
        "createdAt": { "type": "string" },
        "updatedAt": { "type": "string" },
        "parentID": { "type": "number", "comment": "ID of parent task" }
      }
    }
  },
  "visibleTaskIDs": {
    "type": "array",
    "comment": "IDs of tasks that are visible to the user",
    "items": { "type": "number" }
  },
  "selectedTaskIDs": {
    "type": "array",
    "comment": "IDs of tasks that are selected by the user",
    "items": { "type": "number" }
  }
}`)
